package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sortec/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// Callback data prefixes for inline keyboard buttons.
// Telegram limits callback data to 64 bytes; a registration id is a 36-char uuid.
const (
	cbApprove = "ap:" // ap:<registration_id>
	cbDeny    = "dn:" // dn:<registration_id>
)

const callbackTimeout = 15 * time.Second

func buildDecisionButtons(registrationId string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{{
		{Text: "Approve ✓", CallbackData: cbApprove + registrationId},
		{Text: "Deny ✗", CallbackData: cbDeny + registrationId},
	}}}
}

func (t *TgBot) onApproveCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.onDecision(ctx, cbApprove, entity.StatusApproved)
}

func (t *TgBot) onDenyCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.onDecision(ctx, cbDeny, entity.StatusDenied)
}

func (t *TgBot) onDecision(ctx *ext.Context, prefix string, target entity.Status) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	if !t.isAdmin(chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	if t.core == nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Service not ready"})
		return nil
	}

	id := strings.TrimPrefix(cq.Data, prefix)
	if id == "" {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid registration"})
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	var decision *entity.Decision
	var err error
	if target == entity.StatusApproved {
		decision, err = t.core.Approve(c, id)
	} else {
		decision, err = t.core.Deny(c, id)
	}
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Registration not found", ShowAlert: true})
			return nil
		}
		t.reportError(chatId, "decision:"+string(target), err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	t.log.With(
		"registration_id", id,
		"outcome", string(decision.Outcome),
		"admin", displayName(&cq.From),
	).Info("decision from telegram")

	line := decisionLine(decision, displayName(&cq.From))
	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			_, _, err = t.api.EditMessageText(im.Text+"\n\n"+line, &tgbotapi.EditMessageTextOpts{
				ChatId:    chatId,
				MessageId: im.MessageId,
			})
			if err != nil {
				t.log.With("registration_id", id).Debug("editing decision message", "error", err)
			}
		}
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: line})
	return nil
}

// decisionLine is the plain-text summary appended to a review message.
func decisionLine(d *entity.Decision, actor string) string {
	reg := d.Registration
	switch d.Outcome {
	case entity.OutcomeApplied:
		return fmt.Sprintf("%s %s by %s", reg.Code(), reg.Status, actor)
	case entity.OutcomeAlreadyHandled:
		return fmt.Sprintf("%s was already %s", reg.Code(), reg.Status)
	default:
		return fmt.Sprintf("%s is already %s, decision ignored", reg.Code(), reg.Status)
	}
}
