package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsWithoutKey(t *testing.T) {
	err := Init(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	assert.False(t, Offline())
	assert.False(t, ReadOnlyAdmin())
	assert.Equal(t, "warn", LogLevel("warn"))

	snap := Snapshot("info")
	assert.Equal(t, false, snap["ready"])
	assert.Equal(t, "info", snap["logLevel"])

	assert.NotPanics(t, Shutdown)
}
