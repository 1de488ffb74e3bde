package notify

import "context"

type NoopSender struct{}

func (NoopSender) Send(_ context.Context, _ Message) error {
	return nil
}
