package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sortec/entity"
)

var errNoAdmins = errors.New("no admin chats configured")

// SendMessageWithLevel forwards msg to the admin chats if level reaches the
// configured minimum. It is the sink of the logger's TelegramHandler.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < t.minLogLevel {
		return
	}
	t.notifyAdmins(msg)
}

// Send delivers admin review requests to every admin chat with decision buttons.
// Participant notifications have no Telegram recipient and are ignored here.
// Every API call is bounded by the deadline of ctx.
func (t *TgBot) Send(ctx context.Context, intent entity.NotificationIntent) error {
	if intent.Kind != entity.KindAdminReview {
		return nil
	}
	admins := t.adminIds()
	if len(admins) == 0 {
		return &entity.DeliveryError{Kind: intent.Kind, Recipient: "telegram", Err: errNoAdmins}
	}

	text := reviewMessage(intent.Payload)
	keyboard := buildDecisionButtons(intent.Payload.RegistrationId)

	var errs []error
	for _, id := range admins {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
			continue
		}
		if err := t.sendWithKeyboard(id, text, keyboard, requestOpts(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	if len(errs) == len(admins) {
		return &entity.DeliveryError{Kind: intent.Kind, Recipient: "telegram", Err: errors.Join(errs...)}
	}
	return nil
}

func (t *TgBot) notifyAdmins(msg string) {
	for _, id := range t.adminIds() {
		t.plainResponse(id, msg)
	}
}
