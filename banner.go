package whatsthat

import (
	"sync"
	"time"
)

// BannerDelay is how long a banner stays visible.
const BannerDelay = 3 * time.Second

// Banner holds at most one transient message. A new message replaces the
// current one and restarts the dismiss timer.
type Banner struct {
	mu       sync.Mutex
	text     string
	delay    time.Duration
	gen      uint64
	timer    *time.Timer
	onChange func(string)
}

// NewBanner creates a banner that clears itself after delay. onChange, if
// non-nil, is called with the new text on every show and with "" on dismiss.
func NewBanner(delay time.Duration, onChange func(string)) *Banner {
	if delay <= 0 {
		delay = BannerDelay
	}
	return &Banner{delay: delay, onChange: onChange}
}

func (b *Banner) Show(text string) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.text = text
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, func() { b.expire(gen) })
	b.mu.Unlock()

	b.notify(text)
}

func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.text == "" {
		b.mu.Unlock()
		return
	}
	b.text = ""
	b.timer = nil
	b.mu.Unlock()

	b.notify("")
}

// Text returns the visible message, or "" when nothing is shown.
func (b *Banner) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Dismiss hides the banner immediately.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	b.gen++
	shown := b.text != ""
	b.text = ""
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if shown {
		b.notify("")
	}
}

func (b *Banner) notify(text string) {
	if b.onChange != nil {
		b.onChange(text)
	}
}
