package guest

import "errors"

// ErrGuestNotFound signals that the guest could not be located.
var ErrGuestNotFound = errors.New("guest not found")
