package notify

import (
	"context"
	"errors"

	"sortec/entity"
)

// Fanout delivers each intent to every notifier; errors are joined.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, intent entity.NotificationIntent) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &entity.DeliveryError{Kind: intent.Kind, Recipient: intent.Recipient, Err: errors.Join(errs...)}
}
