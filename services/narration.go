package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

const (
	NARRATION_SVC = "narration_svc"

	DefaultNarrationVoice   = "alloy"
	narrationRequestTimeout = 30 * time.Second
	narrationURLExpiry      = 24 * time.Hour
)

// SpeechSynthesizer turns text into mp3 audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

// AudioCache keeps synthesized audio addressable by a content key.
type AudioCache interface {
	Lookup(ctx context.Context, key string) (url string, found bool, err error)
	Store(ctx context.Context, key string, audio []byte) (url string, err error)
}

type openAISynthesizer struct {
	client *openai.Client
}

func NewOpenAISynthesizer(apiKey, baseURL string) SpeechSynthesizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &openAISynthesizer{client: openai.NewClientWithConfig(config)}
}

func (s *openAISynthesizer) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

type minioAudioCache struct {
	minio *MinIOService
}

func NewMinIOAudioCache(minio *MinIOService) AudioCache {
	return &minioAudioCache{minio: minio}
}

func (c *minioAudioCache) Lookup(ctx context.Context, key string) (string, bool, error) {
	exists, err := c.minio.Exists(ctx, key)
	if err != nil || !exists {
		return "", false, err
	}
	url, err := c.minio.PresignedURL(ctx, key, narrationURLExpiry)
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (c *minioAudioCache) Store(ctx context.Context, key string, audio []byte) (string, error) {
	if err := c.minio.PutAudio(ctx, key, audio); err != nil {
		return "", err
	}
	return c.minio.PresignedURL(ctx, key, narrationURLExpiry)
}

// NarrationService voices story text. Every failure degrades to a fallback
// result telling the client to use its local speech synthesizer.
type NarrationService struct {
	appContext.DefaultService

	synth SpeechSynthesizer
	cache AudioCache
	voice string
}

func NewNarrationService(synth SpeechSynthesizer, cache AudioCache, voice string) *NarrationService {
	if voice == "" {
		voice = DefaultNarrationVoice
	}
	return &NarrationService{synth: synth, cache: cache, voice: voice}
}

func (svc NarrationService) Id() string {
	return NARRATION_SVC
}

func (svc *NarrationService) Configure(ctx *appContext.Context) error {
	svc.voice = os.Getenv("NARRATION_VOICE")
	if svc.voice == "" {
		svc.voice = DefaultNarrationVoice
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		svc.synth = NewOpenAISynthesizer(apiKey, os.Getenv("OPENAI_BASE_URL"))
	} else {
		log.Warn("OPENAI_API_KEY not set, narration uses the client synthesizer")
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *NarrationService) Start() error {
	if minio := svc.Service(MINIO_SVC).(*MinIOService); minio.Enabled() {
		svc.cache = NewMinIOAudioCache(minio)
	}
	return nil
}

func (svc *NarrationService) fallback(text, result string) dto.Narration {
	RecordNarration(result)
	return dto.Narration{Text: text, Voice: svc.voice, Fallback: true}
}

func narrationKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return "narration/" + hex.EncodeToString(sum[:]) + ".mp3"
}

// Speak returns audio for text: cached, freshly synthesized or a fallback.
func (svc *NarrationService) Speak(ctx context.Context, text string) dto.Narration {
	text = strings.TrimSpace(text)
	if text == "" || svc.synth == nil {
		return svc.fallback(text, "fallback")
	}

	key := narrationKey(svc.voice, text)

	if svc.cache != nil {
		url, found, err := svc.cache.Lookup(ctx, key)
		if err != nil {
			log.WithError(err).Warn("Narration cache lookup failed")
		}
		if found {
			RecordNarration("cached")
			return dto.Narration{Text: text, Voice: svc.voice, AudioURL: url}
		}
	}

	audio, err := svc.synth.Synthesize(ctx, svc.voice, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return svc.fallback(text, "cancelled")
		}
		log.WithError(err).Warn("Speech synthesis failed, falling back to client synthesizer")
		return svc.fallback(text, "fallback")
	}

	RecordNarration("synthesized")

	if svc.cache != nil {
		url, err := svc.cache.Store(ctx, key, audio)
		if err == nil {
			return dto.Narration{Text: text, Voice: svc.voice, AudioURL: url}
		}
		log.WithError(err).Warn("Failed to cache narration audio")
	}

	return dto.Narration{
		Text:     text,
		Voice:    svc.voice,
		AudioURL: "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio),
	}
}

// NewNarrator creates the narration channel of one play session.
func (svc *NarrationService) NewNarrator(onReady func(dto.Narration)) *Narrator {
	return &Narrator{svc: svc, onReady: onReady}
}

// Narrator keeps at most one narration request in flight; a new line
// cancels the previous request.
type Narrator struct {
	svc     *NarrationService
	onReady func(dto.Narration)

	mu      sync.Mutex
	cancel  context.CancelFunc
	seq     uint64
	latest  dto.Narration
	stopped bool
}

func (n *Narrator) Say(text string) {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	if n.cancel != nil {
		n.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), narrationRequestTimeout)
	n.cancel = cancel
	n.seq++
	seq := n.seq
	n.latest = dto.Narration{Text: text, Voice: n.svc.voice, Pending: true}
	n.mu.Unlock()

	go func() {
		defer cancel()
		result := n.svc.Speak(ctx, text)

		n.mu.Lock()
		current := seq == n.seq && !n.stopped
		if current {
			n.latest = result
		}
		n.mu.Unlock()

		if current && n.onReady != nil {
			n.onReady(result)
		}
	}()
}

func (n *Narrator) Latest() dto.Narration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latest
}

// Stop cancels the live request; later Say calls are ignored.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}
