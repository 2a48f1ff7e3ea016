package main

import (
	"fmt"
	"net"

	"github.com/BurntSushi/toml"

	"github.com/embednet/micronet"
	"github.com/embednet/micronet/stack"
)

// fileConfig is the on-disk TOML shape, loaded the way the reference
// DHCP daemon loads its server configuration. The engine itself never
// sees TOML: this file is decoded here and translated into plain
// stack.Config values before being handed to stack.New.
type fileConfig struct {
	Controllers []controllerConfig `toml:"controller"`
	PollHz      float64            `toml:"poll_hz"`
}

type controllerConfig struct {
	Interface string   `toml:"interface"`
	MAC       string   `toml:"mac"`
	IP        string   `toml:"ip"`
	Subnet    string   `toml:"subnet"`
	ArpSlots  int      `toml:"arp_slots"`
	Ports     []port   `toml:"port"`
}

type port struct {
	Protocol   string `toml:"protocol"` // currently only "udp"
	LocalPort  uint16 `toml:"local_port"`
	RemotePort uint16 `toml:"remote_port"`
	PeerIP     string `toml:"peer_ip"`
	RxBytes    uint32 `toml:"rx_bytes"`
	TxBytes    uint32 `toml:"tx_bytes"`
	RxDescs    uint32 `toml:"rx_descriptors"` // 0 selects stream mode
	TxDescs    uint32 `toml:"tx_descriptors"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("micronetd: decode config: %w", err)
	}
	if fc.PollHz <= 0 {
		fc.PollHz = 1000
	}
	return fc, nil
}

func parseIPv4(s string) (micronet.IPv4, error) {
	var out micronet.IPv4
	ip := net.ParseIP(s)
	if ip == nil {
		return out, fmt.Errorf("micronetd: invalid IPv4 address %q", s)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return out, fmt.Errorf("micronetd: not an IPv4 address %q", s)
	}
	copy(out[:], ip4)
	return out, nil
}

func parseMAC(s string) (micronet.MAC, error) {
	var out micronet.MAC
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return out, fmt.Errorf("micronetd: invalid MAC address %q", s)
	}
	copy(out[:], hw)
	return out, nil
}

// buildStackConfig resolves every interface name to an index, opens one
// raw-socket driver per controller, and assembles a stack.Config. The
// caller owns closing the returned drivers once the stack is done.
func buildStackConfig(fc fileConfig, notify func(int, micronet.NotifyCode)) (stack.Config, []*LinuxRawSocketDriver, error) {
	var cfg stack.Config
	cfg.NotifyFunc = notify
	var drivers []*LinuxRawSocketDriver

	for ctrlID, cc := range fc.Controllers {
		mac, err := parseMAC(cc.MAC)
		if err != nil {
			return stack.Config{}, drivers, err
		}
		ip, err := parseIPv4(cc.IP)
		if err != nil {
			return stack.Config{}, drivers, err
		}
		subnet, err := parseIPv4(cc.Subnet)
		if err != nil {
			return stack.Config{}, drivers, err
		}
		iface, err := net.InterfaceByName(cc.Interface)
		if err != nil {
			return stack.Config{}, drivers, fmt.Errorf("micronetd: interface %q: %w", cc.Interface, err)
		}
		drv, err := NewLinuxRawSocketDriver(iface.Index, mac)
		if err != nil {
			return stack.Config{}, drivers, err
		}
		drivers = append(drivers, drv)

		cfg.Controllers = append(cfg.Controllers, stack.ControllerConfig{
			MAC:           drv,
			Clock:         MonotonicClock{},
			DefaultMAC:    mac,
			DefaultIP:     ip,
			DefaultSubnet: subnet,
			MACDriverID:   ctrlID,
			ArpCapacity:   arpSlotsOrDefault(cc.ArpSlots),
		})

		for _, p := range cc.Ports {
			var peerIP micronet.IPv4
			if p.PeerIP != "" {
				peerIP, err = parseIPv4(p.PeerIP)
				if err != nil {
					return stack.Config{}, drivers, err
				}
			}
			cfg.Ports = append(cfg.Ports, stack.PortConfig{
				ControllerID:  ctrlID,
				Protocol:      micronet.IPProtoUDP,
				DefaultPeerIP: peerIP,
				LocalPort:     p.LocalPort,
				RemotePort:    p.RemotePort,
				RxBytesCap:    p.RxBytes,
				TxBytesCap:    p.TxBytes,
				RxDescCap:     p.RxDescs,
				TxDescCap:     p.TxDescs,
			})
		}
	}
	return cfg, drivers, nil
}

func arpSlotsOrDefault(n int) int {
	if n <= 0 {
		return 8
	}
	return n
}

// arenaSize sums every ring/descriptor/scratch request a Config will
// make of stack.New, so the harness can allocate the arena in one shot.
func arenaSize(cfg stack.Config) int {
	const scratchSize = 1514
	const descriptorSize = 8
	total := scratchSize * len(cfg.Controllers)
	for _, pc := range cfg.Ports {
		total += int(pc.RxBytesCap) + int(pc.TxBytesCap)
		total += int(pc.RxDescCap)*descriptorSize + int(pc.TxDescCap)*descriptorSize
	}
	return total
}
