package port

import "context"

//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock

// Message is an encoded event ready to be handed to a transport.
type Message struct {
	Name   string
	Entity string
	Key    string
	Body   []byte
}

type BrokerPort interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}
