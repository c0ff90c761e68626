package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNotifierExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	n := NewNotifier()
	n.now = clock.now

	_, ok := n.Current()
	assert.False(t, ok)

	n.Success("Product added successfully!")
	clock.advance(2 * time.Second)
	got, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, "success", got.Kind)

	clock.advance(time.Second)
	_, ok = n.Current()
	assert.False(t, ok)
}

func TestNotifierReplaces(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	n := NewNotifier()
	n.now = clock.now

	n.Success("first")
	clock.advance(2 * time.Second)
	n.Error("second")
	clock.advance(2 * time.Second)

	got, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, "error", got.Kind)
	assert.Equal(t, "second", got.Message)

	n.Dismiss()
	_, ok = n.Current()
	assert.False(t, ok)
}
