package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sortec/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const (
	commandTimeout = 15 * time.Second
	// pendingLimit caps the number of review cards sent by /pending
	pendingLimit = 20
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, fmt.Sprintf("This bot is for contest administrators\\. Your id is `%d`\\.", chatId))
		return nil
	}
	t.plainResponse(chatId, "Welcome\\! New registrations will be posted here for review\\. Use /help to see the commands\\.")
	return nil
}

// pending sends a review card with decision buttons for every pending registration.
func (t *TgBot) pending(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	count := 0
	for reg, err := range t.core.List(c) {
		if err != nil {
			t.reportError(chatId, "/pending", err)
			return nil
		}
		if reg.Status != entity.StatusPending {
			continue
		}
		count++
		if count > pendingLimit {
			continue
		}
		payload := entity.NotificationPayload{
			RegistrationId:  reg.Id,
			ParticipantName: reg.FullName(),
			ContestCode:     reg.Code(),
			VoucherUrl:      reg.VoucherUrl,
		}
		if err = t.sendWithKeyboard(chatId, reviewMessage(payload), buildDecisionButtons(reg.Id), nil); err != nil {
			return nil
		}
	}

	switch {
	case count == 0:
		t.plainResponse(chatId, "No pending registrations\\.")
	case count > pendingLimit:
		t.plainResponse(chatId, fmt.Sprintf("Showing %d of %d pending registrations\\.", pendingLimit, count))
	}
	return nil
}

// code looks up a registration by its contest code: /code SORTECJP003
func (t *TgBot) code(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/code <contest code>`")
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reg, err := t.core.GetByCode(c, args[1])
	if err != nil {
		t.reportError(chatId, "/code", err)
		return nil
	}
	if reg == nil {
		t.plainResponse(chatId, fmt.Sprintf("No registration with code `%s`\\.", Sanitize(args[1])))
		return nil
	}

	text := registrationMessage(reg)
	if reg.Status == entity.StatusPending {
		_ = t.sendWithKeyboard(chatId, text, buildDecisionButtons(reg.Id), nil)
		return nil
	}
	for _, part := range splitMessage(text, maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	var sb strings.Builder
	sb.WriteString("*Available Commands*\n\n")
	sb.WriteString("`/start` \\- Show your chat id\n")
	sb.WriteString("`/help` \\- Show this help\n")

	if t.isAdmin(chatId) {
		sb.WriteString("\n*Admin Commands:*\n")
		sb.WriteString("`/pending` \\- Review pending registrations\n")
		sb.WriteString("`/code <code>` \\- Find a registration by contest code\n")
	}

	t.plainResponse(chatId, sb.String())
	return nil
}

// requireAdmin answers non-admins and reports whether the command may proceed.
func (t *TgBot) requireAdmin(chatId int64) bool {
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, "Not authorized\\.")
		return false
	}
	if t.core == nil {
		t.plainResponse(chatId, "Service not ready\\.")
		return false
	}
	return true
}
