// Package bot implements the Telegram side of registration review.
//
// Architecture overview:
//   - tgbot.go    : TgBot struct, lifecycle (Start/Stop), admin list, Core interface
//   - messaging.go: admin review notifications and log mirroring
//   - callbacks.go: Approve/Deny inline buttons and their handlers
//   - commands.go : /start, /pending, /code, /help
//   - menus.go    : per-admin command menus via BotCommandScopeChat
//   - helpers.go  : Sanitize, plainResponse, sendWithKeyboard, formatting
//
// Data flow for a new registration:
//
//	workflow.Submit → dispatcher → TgBot.Send(admin_review_requested)
//	  → message with Approve/Deny buttons to every admin chat
//	  → button press → Core.Approve/Deny → message edited with the outcome
//
// Thread safety: the admin set is guarded by sync.RWMutex.
package bot

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"sortec/entity"
	"sortec/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
)

// BotConfig holds Telegram-specific configuration loaded from the YAML config file.
type BotConfig struct {
	Admins      []int64
	MinLogLevel slog.Level
}

// Core is the part of the registration workflow the bot drives.
type Core interface {
	Approve(ctx context.Context, id string) (*entity.Decision, error)
	Deny(ctx context.Context, id string) (*entity.Decision, error)
	GetByCode(ctx context.Context, code string) (*entity.Registration, error)
	List(ctx context.Context) iter.Seq2[*entity.Registration, error]
}

type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	core        Core
	mu          sync.RWMutex
	admins      map[int64]bool
	minLogLevel slog.Level
	updater     *ext.Updater
}

func NewTgBot(apiKey string, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		minLogLevel: cfg.MinLogLevel,
		admins:      make(map[int64]bool, len(cfg.Admins)),
	}
	for _, id := range cfg.Admins {
		tgBot.admins[id] = true
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// SetCore connects the workflow; the bot is built before it because the
// workflow's notifier chain includes the bot.
func (t *TgBot) SetCore(core Core) {
	t.core = core
}

// Start begins polling and blocks until Stop is called.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("pending", t.pending))
	dispatcher.AddHandler(handlers.NewCommand("code", t.code))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbApprove), t.onApproveCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDeny), t.onDenyCallback))

	t.setDefaultCommands()
	t.syncAdminMenus()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.With(slog.Int("admins", len(t.adminIds()))).Info("telegram bot started")

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		_ = t.updater.Stop()
	}
}

func (t *TgBot) isAdmin(chatId int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.admins[chatId]
}

func (t *TgBot) adminIds() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.admins))
	for id := range t.admins {
		ids = append(ids, id)
	}
	return ids
}
