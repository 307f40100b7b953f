package delivery

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrChannelDisconnected = errors.New("messaging channel disconnected")
	ErrPayloadTooLarge     = errors.New("attachment exceeds size limit")
	ErrDeliveryFailed      = errors.New("delivery failed")
	ErrSendTimeout         = errors.New("send timed out")
)

// CircuitOpenError is returned while the breaker refuses deliveries.
type CircuitOpenError struct {
	Remaining time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open: retry in %s", e.Remaining.Round(time.Second))
}
