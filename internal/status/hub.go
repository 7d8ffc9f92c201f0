// Package status owns the user-visible status line. Writers post texts
// without blocking; a single goroutine applies them and fans them out to
// subscribers such as the tray and the event stream.
package status

import (
	"context"
	"sync"
	"time"
)

// Update is one status change.
type Update struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Config controls the hub.
type Config struct {
	// Idle is the text shown when nothing happened recently.
	Idle string
	// ResetAfter returns the status to Idle after this long. Zero disables resets.
	ResetAfter time.Duration
	// Buffer is the number of pending texts kept before new ones are dropped.
	Buffer int
}

// DefaultConfig returns the default hub settings.
func DefaultConfig() Config {
	return Config{
		Idle:       "Ready",
		ResetAfter: 1200 * time.Millisecond,
		Buffer:     16,
	}
}

// Hub serializes status updates.
type Hub struct {
	cfg Config
	in  chan string

	mu      sync.RWMutex
	current Update
	subs    map[int]chan Update
	nextID  int
}

// NewHub creates a Hub showing the idle text.
func NewHub(cfg Config) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}
	return &Hub{
		cfg:     cfg,
		in:      make(chan string, cfg.Buffer),
		current: Update{Text: cfg.Idle, At: time.Now()},
		subs:    make(map[int]chan Update),
	}
}

// SetStatus posts text. It never blocks; texts are dropped when the hub is
// behind.
func (h *Hub) SetStatus(text string) {
	select {
	case h.in <- text:
	default:
	}
}

// Current returns the latest applied status.
func (h *Hub) Current() Update {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Subscribe registers a listener. Slow listeners miss updates rather than
// stalling the hub. Call the returned function to unsubscribe.
func (h *Hub) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Run applies posted texts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	reset := time.NewTimer(time.Hour)
	reset.Stop()
	defer reset.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-h.in:
			h.apply(text)
			if h.cfg.ResetAfter > 0 && text != h.cfg.Idle {
				reset.Reset(h.cfg.ResetAfter)
			}
		case <-reset.C:
			h.apply(h.cfg.Idle)
		}
	}
}

func (h *Hub) apply(text string) {
	u := Update{Text: text, At: time.Now()}

	h.mu.Lock()
	if h.current.Text == text {
		h.current.At = u.At
		h.mu.Unlock()
		return
	}
	h.current = u
	subs := make([]chan Update, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- u:
		default:
		}
	}
}
