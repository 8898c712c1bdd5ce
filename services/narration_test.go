package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	err   error
	// block holds synthesis of the given text until ctx ends.
	block string
}

func (f *fakeSynth) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if text == f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + text), nil
}

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (c *mapCache) Lookup(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return "", false, nil
	}
	return "https://cdn.example.com/" + key, true, nil
}

func (c *mapCache) Store(ctx context.Context, key string, audio []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = audio
	return "https://cdn.example.com/" + key, nil
}

func TestSpeakWithoutSynthesizerFallsBack(t *testing.T) {
	n := NewNarrationService(nil, nil, "").Speak(context.Background(), " Hello ")
	assert.True(t, n.Fallback)
	assert.Equal(t, "Hello", n.Text)
	assert.Equal(t, DefaultNarrationVoice, n.Voice)
}

func TestSpeakInlinesAudioWithoutCache(t *testing.T) {
	n := NewNarrationService(&fakeSynth{}, nil, "nova").Speak(context.Background(), "Hello")
	assert.False(t, n.Fallback)
	assert.True(t, strings.HasPrefix(n.AudioURL, "data:audio/mpeg;base64,"))
	assert.Equal(t, "nova", n.Voice)
}

func TestSpeakUsesCache(t *testing.T) {
	synth := &fakeSynth{}
	cache := &mapCache{items: map[string][]byte{}}
	svc := NewNarrationService(synth, cache, "")

	first := svc.Speak(context.Background(), "Hello")
	second := svc.Speak(context.Background(), "Hello")

	assert.Equal(t, first.AudioURL, second.AudioURL)
	assert.True(t, strings.HasPrefix(first.AudioURL, "https://cdn.example.com/narration/"))
	assert.Len(t, synth.calls, 1)
}

func TestSpeakSynthesisErrorFallsBack(t *testing.T) {
	n := NewNarrationService(&fakeSynth{err: errors.New("quota")}, nil, "").Speak(context.Background(), "Hello")
	assert.True(t, n.Fallback)
	assert.Empty(t, n.AudioURL)
}

func TestNarratorNewLineSupersedesOld(t *testing.T) {
	svc := NewNarrationService(&fakeSynth{block: "slow"}, nil, "")

	ready := make(chan dto.Narration, 4)
	narrator := svc.NewNarrator(func(n dto.Narration) { ready <- n })
	defer narrator.Stop()

	narrator.Say("slow")
	assert.True(t, narrator.Latest().Pending)
	narrator.Say("fast")

	select {
	case n := <-ready:
		assert.Equal(t, "fast", n.Text)
	case <-time.After(time.Second):
		t.Fatal("narration not delivered")
	}

	select {
	case n := <-ready:
		t.Fatalf("superseded narration delivered: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, "fast", narrator.Latest().Text)
}

func TestNarratorStopIgnoresLaterLines(t *testing.T) {
	synth := &fakeSynth{}
	narrator := NewNarrationService(synth, nil, "").NewNarrator(nil)
	narrator.Stop()
	narrator.Say("Hello")

	require.Empty(t, narrator.Latest().Text)
	time.Sleep(20 * time.Millisecond)
	synth.mu.Lock()
	defer synth.mu.Unlock()
	assert.Empty(t, synth.calls)
}
