// Package notifier delivers verification codes to users out of band.
package notifier

import (
	"context"
	"fmt"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// DeliveryError reports a failed send and which driver attempted it.
type DeliveryError struct {
	Driver string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Driver, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
