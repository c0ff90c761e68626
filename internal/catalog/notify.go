package catalog

import (
	"sync"
	"time"

	"apparel-catalog/internal/logger"
)

// NoticeTTL is how long a notification stays visible.
const NoticeTTL = 3 * time.Second

// Notice is a transient message for the user.
type Notice struct {
	Kind    string    `json:"type"`
	Message string    `json:"message"`
	Expires time.Time `json:"expires_at"`
}

// Notifier holds at most one notice; a newer notice replaces the current one
// and a notice disappears on its own after NoticeTTL.
type Notifier struct {
	mu      sync.Mutex
	current *Notice
	ttl     time.Duration
	now     func() time.Time
}

// NewNotifier creates a notifier with the default lifetime.
func NewNotifier() *Notifier {
	return &Notifier{ttl: NoticeTTL, now: time.Now}
}

// Success posts a success notice.
func (n *Notifier) Success(msg string) { n.post("success", msg) }

// Error posts an error notice.
func (n *Notifier) Error(msg string) {
	logger.Debugf("notify error: %s", msg)
	n.post("error", msg)
}

func (n *Notifier) post(kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &Notice{Kind: kind, Message: msg, Expires: n.now().Add(n.ttl)}
}

// Current returns the visible notice, if any.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notice{}, false
	}
	if !n.now().Before(n.current.Expires) {
		n.current = nil
		return Notice{}, false
	}
	return *n.current, true
}

// Dismiss hides the current notice.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	n.current = nil
	n.mu.Unlock()
}
