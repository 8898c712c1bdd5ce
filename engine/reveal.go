package engine

import (
	"context"
	"sync"
	"time"
)

// DefaultRevealTick is the delay between two revealed characters.
const DefaultRevealTick = 20 * time.Millisecond

// Reveal produces a text one rune at a time. For a text of N runes it yields
// the N+1 prefixes of length 0..N. Complete jumps to the full text and may be
// called any number of times.
type Reveal struct {
	mu    sync.Mutex
	runes []rune
	pos   int
}

func NewReveal(text string) *Reveal {
	return &Reveal{runes: []rune(text), pos: -1}
}

// Next advances by one rune and returns the new prefix. ok is false once the
// full text has already been produced.
func (r *Reveal) Next() (prefix string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.runes) {
		return string(r.runes), false
	}
	r.pos++
	return string(r.runes[:r.pos]), true
}

// Complete short-circuits the reveal and returns the full text.
func (r *Reveal) Complete() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pos = len(r.runes)
	return string(r.runes)
}

func (r *Reveal) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos >= len(r.runes)
}

// Text is the prefix revealed so far.
func (r *Reveal) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos < 0 {
		return ""
	}
	return string(r.runes[:r.pos])
}

func (r *Reveal) Full() string {
	return string(r.runes)
}

// Run drives the reveal on a ticker, calling emit with every new prefix,
// until the text is complete or ctx is cancelled.
func (r *Reveal) Run(ctx context.Context, tick time.Duration, emit func(prefix string)) {
	if tick <= 0 {
		tick = DefaultRevealTick
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		prefix, ok := r.Next()
		if !ok {
			return
		}
		if emit != nil {
			emit(prefix)
		}
		if r.Done() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
