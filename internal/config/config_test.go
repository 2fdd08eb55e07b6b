package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(`
env: dev
listen:
  port: "9090"
telegram:
  enabled: true
  admins: [1001, 1002]
contest:
  base_url: https://sorteos.example.com
`), 0o600)
	require.NoError(t, err)

	conf := MustLoad(path)
	require.NotNil(t, conf)

	assert.Equal(t, "dev", conf.Env)
	assert.Equal(t, "9090", conf.Listen.Port)
	assert.Equal(t, "0.0.0.0", conf.Listen.BindIp)
	assert.True(t, conf.Telegram.Enabled)
	assert.Equal(t, []int64{1001, 1002}, conf.Telegram.Admins)
	assert.Equal(t, "error", conf.Telegram.LogLevel)
	assert.Equal(t, "SORTEC", conf.Contest.CodePrefix)
	assert.Equal(t, "https://sorteos.example.com", conf.Contest.BaseUrl)
	assert.Equal(t, 10000, conf.Contest.StoreTimeoutMs)
	assert.False(t, conf.Mongo.Enabled)
	assert.Equal(t, "sortec:registration:seq", conf.Redis.Key)
	assert.Equal(t, 2, conf.Notify.Workers)

	// loaded once per process
	assert.Same(t, conf, MustLoad("missing.yml"))
}
