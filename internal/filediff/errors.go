package filediff

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDiffNotAvailable is returned when a requested diff could not be
// computed.
var ErrDiffNotAvailable = errors.New("diff not available")

// NotAvailableError lists the keys a request could not serve.
type NotAvailableError struct {
	Missing []Key
	Cause   error
}

func (e *NotAvailableError) Error() string {
	var b strings.Builder
	b.WriteString(ErrDiffNotAvailable.Error())
	switch len(e.Missing) {
	case 0:
	case 1:
		fmt.Fprintf(&b, " for %s", e.Missing[0])
	default:
		fmt.Fprintf(&b, " for %d keys, first %s", len(e.Missing), e.Missing[0])
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *NotAvailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDiffNotAvailable}
	}
	return []error{ErrDiffNotAvailable, e.Cause}
}
