package mq

import (
	"context"
	"errors"
)

// ErrNoBroker is returned by Subscribe when no broker is configured.
var ErrNoBroker = errors.New("no message broker configured")

// NoopClient drops published messages. It backs MQ_BACKEND=none.
type NoopClient struct{}

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// Publish discards the message and reports success.
func (NoopClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

// Subscribe fails because nothing will ever be delivered.
func (NoopClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return ErrNoBroker
}

func (NoopClient) Close() error {
	return nil
}
