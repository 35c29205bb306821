// Package push delivers notification payloads to device tokens.
package push

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	// ErrUnregistered means the device token is no longer valid for the app.
	ErrUnregistered = errors.New("device token is unregistered")
	// ErrInvalidToken means the provider rejected the token as malformed.
	ErrInvalidToken = errors.New("device token is invalid")
)

// Message is one prepared push notification.
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Gateway sends a message and returns the provider's message ID.
type Gateway interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// DeliveryError describes a failed send for one token.
type DeliveryError struct {
	Token  string
	Status int
	Code   string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("push delivery failed (%d %s): %v", e.Status, e.Code, e.Err)
	}
	return fmt.Sprintf("push delivery failed (%d): %v", e.Status, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// LogGateway only logs messages. It is used when no provider is configured.
type LogGateway struct{}

func (LogGateway) Send(_ context.Context, msg Message) (string, error) {
	log.Printf("push (not configured): to=%s title=%q body=%q", maskToken(msg.Token), msg.Title, msg.Body)
	return "log-only", nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
