package sequence

import (
	"testing"

	"sortec/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNewRedis_Disabled(t *testing.T) {
	r, err := NewRedis(&config.Config{})
	assert.NoError(t, err)
	assert.Nil(t, r)
}
