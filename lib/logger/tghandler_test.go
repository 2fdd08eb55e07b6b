package logger

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkMessage struct {
	msg   string
	level slog.Level
}

type memorySink struct {
	mu       sync.Mutex
	messages []sinkMessage
}

func (s *memorySink) SendMessageWithLevel(msg string, level slog.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, sinkMessage{msg, level})
}

func TestTelegramHandler(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	sink := &memorySink{}
	log := slog.New(NewTelegramHandler(base, sink, slog.LevelWarn))

	log.Info("registration submitted")
	log.With(slog.String("mod", "workflow")).Error("save registration", slog.String("error", "timeout"))

	assert.Contains(t, buf.String(), "registration submitted")
	assert.Contains(t, buf.String(), "save registration")

	require.Len(t, sink.messages, 1)
	m := sink.messages[0]
	assert.Equal(t, slog.LevelError, m.level)
	assert.Contains(t, m.msg, "*ERROR*")
	assert.Contains(t, m.msg, "mod: workflow")
	assert.Contains(t, m.msg, "```error timeout ```")
}

func TestTelegramHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	sink := &memorySink{}
	log := slog.New(NewTelegramHandler(slog.NewTextHandler(&buf, nil), sink, slog.LevelInfo))

	log.WithGroup("mail").Warn("not sent")

	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0].msg, "mail\\.not sent")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(" INFO "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("whatever"))
}
