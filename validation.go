package micronet

// Validator accumulates frame-validation errors across one or more
// ValidateSize calls on a decoded frame. The zero
// value is ready to use; reuse one Validator across a controller's main
// cycle to avoid allocating a fresh error slice per inbound frame.
type Validator struct {
	err error
}

// AddError records err if no error has been recorded yet. Subsequent
// errors in the same pass are dropped: the caller only needs to know
// whether the frame is malformed, not enumerate every way it is.
func (v *Validator) AddError(err error) {
	if v.err == nil {
		v.err = err
	}
}

// HasError reports whether any error has been recorded since the last Reset.
func (v *Validator) HasError() bool { return v.err != nil }

// ErrPop returns the recorded error and resets the Validator.
func (v *Validator) ErrPop() error {
	err := v.err
	v.err = nil
	return err
}

// Reset clears any recorded error without returning it.
func (v *Validator) Reset() { v.err = nil }
