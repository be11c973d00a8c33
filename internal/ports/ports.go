// Package ports picks free loopback TCP ports for spawned server processes.
package ports

import (
	"fmt"
	"net"
)

// Loopback is the only interface managed servers ever bind.
const Loopback = "127.0.0.1"

// portExhaustedError signals that no port in the probed range was free.
type portExhaustedError struct{ from, to int }

func (e portExhaustedError) Error() string {
	return fmt.Sprintf("no free port in range %d-%d", e.from, e.to)
}

// IsPortExhausted reports whether err indicates an exhausted port range.
func IsPortExhausted(err error) bool {
	_, ok := err.(portExhaustedError)
	return ok
}

// FindPort probes [from, to] in ascending order by binding a loopback
// listener and returns the first port that could be bound. The listener is
// closed immediately, so the port may be taken by an unrelated process
// before the caller binds it; callers retry with a fresh allocation on the
// next start attempt.
func FindPort(from, to int) (int, error) {
	if from <= 0 || to < from {
		return 0, fmt.Errorf("invalid port range %d-%d", from, to)
	}
	for p := from; p <= to; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", Loopback, p))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, portExhaustedError{from: from, to: to}
}
