package notify

import (
	"context"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const sendAttempts = 3

type FirebaseSender struct {
	client *messaging.Client
}

// NewFirebaseSender returns a NoopSender when no credentials are given.
func NewFirebaseSender(ctx context.Context, credentialsFile string) (Sender, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return NoopSender{}, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseSender{client: client}, nil
}

func (s *FirebaseSender) Send(ctx context.Context, m Message) error {
	if s == nil || s.client == nil {
		return nil
	}
	msg := &messaging.Message{
		Topic: m.Topic,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Data: m.Data,
	}
	var lastErr error
	backoff := 300 * time.Millisecond
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		_, err := s.client.Send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}
