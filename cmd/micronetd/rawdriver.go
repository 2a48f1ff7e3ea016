package main

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/embednet/micronet"
)

// htons converts a host-order uint16 to network order, matching the
// reference RARP/ARP installer's helper.
func htons(i uint16) uint16 { return (i<<8)&0xff00 | i>>8 }

const ethPAll = 0x0003 // ETH_P_ALL, network byte order applied via htons

// LinuxRawSocketDriver implements driver.MAC over an AF_PACKET/SOCK_RAW
// socket bound to one interface, grounded on the reference RARP
// installer's raw-socket send/receive pattern. It speaks whole Ethernet
// frames: the kernel never touches their contents beyond the bind filter.
type LinuxRawSocketDriver struct {
	fd      int
	ifIndex int
	mac     micronet.MAC
}

// NewLinuxRawSocketDriver opens and binds the raw socket. ifIndex is the
// interface's index as returned by net.InterfaceByName.
func NewLinuxRawSocketDriver(ifIndex int, mac micronet.MAC) (*LinuxRawSocketDriver, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(ethPAll)))
	if err != nil {
		return nil, fmt.Errorf("micronetd: open raw socket: %w", err)
	}
	ll := &unix.SockaddrLinklayer{Protocol: htons(ethPAll), Ifindex: ifIndex}
	if err := unix.Bind(fd, ll); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("micronetd: bind raw socket: %w", err)
	}
	return &LinuxRawSocketDriver{fd: fd, ifIndex: ifIndex, mac: mac}, nil
}

// Close releases the underlying socket.
func (d *LinuxRawSocketDriver) Close() error { return unix.Close(d.fd) }

// SetMAC is a no-op: Linux owns the interface's hardware address, and
// re-addressing it is out of scope here.
func (d *LinuxRawSocketDriver) SetMAC(mac micronet.MAC) error {
	d.mac = mac
	return nil
}

// HasMessage polls the socket with a zero timeout so the cooperative
// main cycle never blocks waiting on the network.
func (d *LinuxRawSocketDriver) HasMessage() bool {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

// GetMessage performs a single non-blocking read of one whole frame.
func (d *LinuxRawSocketDriver) GetMessage(dst []byte) (n int, ok bool) {
	n, _, err := unix.Recvfrom(d.fd, dst, unix.MSG_DONTWAIT)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SendMessage writes a whole assembled Ethernet frame (destination MAC
// already in the header) via sendto, matching the reference installer's
// send path.
func (d *LinuxRawSocketDriver) SendMessage(frame []byte) bool {
	ll := &unix.SockaddrLinklayer{Ifindex: d.ifIndex}
	return unix.Sendto(d.fd, frame, 0, ll) == nil
}
