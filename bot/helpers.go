package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sortec/entity"
	"sortec/lib/clock"
	"sortec/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

const maxTelegramMessageLen = 4096

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// sendWithKeyboard sends a message with an inline keyboard attached, falling
// back to plain text if markdown is rejected. A nil reqOpts keeps the client default timeout.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup, reqOpts *tgbotapi.RequestOpts) error {
	if text == "" {
		return nil
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
		RequestOpts: reqOpts,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
			RequestOpts: reqOpts,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending message with keyboard fallback", sl.Err(err))
			return err
		}
	}
	return nil
}

// requestOpts bounds a Telegram call by the context deadline.
func requestOpts(ctx context.Context) *tgbotapi.RequestOpts {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	return &tgbotapi.RequestOpts{Timeout: time.Until(deadline)}
}

// reportError logs the error and sends a neutral message to the chat.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*`~>"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

func reviewMessage(p entity.NotificationPayload) string {
	var sb strings.Builder
	sb.WriteString("*New registration*\n")
	sb.WriteString(fmt.Sprintf("Participant: %s\n", Sanitize(p.ParticipantName)))
	if p.ContestCode != "" {
		sb.WriteString(fmt.Sprintf("Code: `%s`\n", Sanitize(p.ContestCode)))
	}
	if p.VoucherUrl != "" {
		sb.WriteString(fmt.Sprintf("Voucher: %s\n", Sanitize(p.VoucherUrl)))
	}
	sb.WriteString(fmt.Sprintf("Id: `%s`", Sanitize(p.RegistrationId)))
	return sb.String()
}

func registrationMessage(reg *entity.Registration) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s*\n", Sanitize(reg.FullName())))
	sb.WriteString(fmt.Sprintf("Code: `%s`\n", Sanitize(reg.Code())))
	sb.WriteString(fmt.Sprintf("Status: %s\n", Sanitize(string(reg.Status))))
	sb.WriteString(fmt.Sprintf("Document: %s\n", Sanitize(reg.DocumentNumber)))
	sb.WriteString(fmt.Sprintf("Payment: %s\n", Sanitize(reg.PaymentReference)))
	sb.WriteString(fmt.Sprintf("Voucher: %s\n", Sanitize(reg.VoucherUrl)))
	sb.WriteString(fmt.Sprintf("Created: %s", Sanitize(clock.Format(reg.CreatedAt))))
	return sb.String()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

func displayName(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}
	if user.Username != "" {
		return fmt.Sprintf("@%s", user.Username)
	}
	return fmt.Sprintf("%d", user.Id)
}
