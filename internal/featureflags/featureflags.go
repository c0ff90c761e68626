// Package featureflags exposes the remotely controlled switches of the service.
package featureflags

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rollout/rox-go/v5/server"
)

// Flags is the container registered with Rollout.
type Flags struct {
	// Offline blocks every request except health checks.
	Offline server.RoxFlag
	// LogLevel is polled by main and applied to the logger.
	LogLevel server.RoxString
	// ReadOnlyAdmin rejects admin mutations while still serving lists.
	ReadOnlyAdmin server.RoxFlag
}

var (
	values = &Flags{
		Offline:       server.NewRoxFlag(false),
		LogLevel:      server.NewRoxString("info", []string{"debug", "info", "warn", "error"}),
		ReadOnlyAdmin: server.NewRoxFlag(false),
	}

	mu    sync.Mutex
	rox   *server.Rox
	ready atomic.Bool
)

// ErrNoAPIKey is returned by Init when no Rollout key is configured.
var ErrNoAPIKey = errors.New("featureflags: no api key, using defaults")

// Init registers the flags and waits for the first fetch or ctx expiry.
func Init(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrNoAPIKey
	}

	mu.Lock()
	defer mu.Unlock()
	if rox != nil {
		return nil
	}

	r := server.NewRox()
	r.Register("catalog", values)
	done := r.Setup(apiKey, server.NewRoxOptions(server.RoxOptionsBuilder{}))

	select {
	case <-done:
		rox = r
		ready.Store(true)
		return nil
	case <-ctx.Done():
		// the SDK keeps fetching in the background; values are served once it lands
		rox = r
		go func() {
			<-done
			ready.Store(true)
		}()
		return ctx.Err()
	}
}

// Offline reports the kill switch. False until the SDK is ready.
func Offline() bool {
	if !ready.Load() {
		return false
	}
	return values.Offline.IsEnabled(nil)
}

// ReadOnlyAdmin reports whether admin mutations are disabled.
func ReadOnlyAdmin() bool {
	if !ready.Load() {
		return false
	}
	return values.ReadOnlyAdmin.IsEnabled(nil)
}

// LogLevel returns the remote log level, or fallback before the SDK is ready.
func LogLevel(fallback string) string {
	if !ready.Load() {
		return fallback
	}
	if v := values.LogLevel.GetValue(nil); v != "" {
		return v
	}
	return fallback
}

// Snapshot returns current values for the diagnostics endpoint.
func Snapshot(logFallback string) map[string]interface{} {
	return map[string]interface{}{
		"ready":         ready.Load(),
		"offline":       Offline(),
		"readOnlyAdmin": ReadOnlyAdmin(),
		"logLevel":      LogLevel(logFallback),
	}
}

// Shutdown stops the SDK if it was started.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if rox != nil {
		rox.Shutdown()
		rox = nil
	}
	ready.Store(false)
}
