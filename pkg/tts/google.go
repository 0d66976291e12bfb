package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-audio/wav"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-depthguard/internal/httpc"
)

const providerGoogle = "google"

// Google synthesizes speech with the Cloud Text-to-Speech API.
type Google struct {
	cfg    *Config
	svc    *texttospeech.Service
	logger *slog.Logger
}

// NewGoogle creates a Google Cloud TTS provider. With no API key it falls
// back to application default credentials via oauth2.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	var clientOpts []option.ClientOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	} else {
		base := context.WithValue(ctx, oauth2.HTTPClient, httpc.NewClient(cfg.Timeout))
		ts, err := google.DefaultTokenSource(base, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, WrapError(providerGoogle, fmt.Errorf("%w: %v", ErrNoCredentials, err))
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(oauth2.NewClient(base, ts)))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		cfg:    cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize requests LINEAR16 audio for text.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.cfg.Language,
			Name:         g.cfg.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: int64(g.cfg.SampleRate),
			SpeakingRate:    g.cfg.SpeakingRate,
			Pitch:           g.cfg.Pitch,
		},
	}

	start := time.Now()
	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, g.wrapAPIError(err)
	}
	latency := time.Since(start)

	raw, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}

	pcm, format, err := decodeLinear16(raw, g.cfg.SampleRate)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	g.logger.Debug("synthesized",
		"chars", len(text),
		"bytes", len(pcm),
		"latency_ms", latency.Milliseconds(),
	)

	return &AudioResult{
		Audio:     pcm,
		Format:    format,
		Duration:  PCMDuration(pcm, format),
		CharCount: len(text),
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Health lists voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if _, err := g.svc.Voices.List().LanguageCode(g.cfg.Language).Context(ctx).Do(); err != nil {
		return g.wrapAPIError(err)
	}
	return nil
}

// Close is a no-op; the service holds no long-lived connections.
func (g *Google) Close() error {
	return nil
}

func (g *Google) wrapAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{StatusCode: gerr.Code, Message: gerr.Message, Provider: providerGoogle}
	}
	return WrapError(providerGoogle, err)
}

// decodeLinear16 strips the WAV container Google wraps LINEAR16 audio in.
// Headerless data is returned as-is at the requested rate.
func decodeLinear16(raw []byte, sampleRate int) ([]byte, AudioFormat, error) {
	if len(raw) == 0 {
		return nil, AudioFormat{}, ErrEmptyAudio
	}
	if !bytes.HasPrefix(raw, []byte("RIFF")) {
		return raw, AudioFormat{SampleRate: sampleRate, Channels: 1}, nil
	}

	dec := wav.NewDecoder(bytes.NewReader(raw))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, AudioFormat{}, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, AudioFormat{}, ErrEmptyAudio
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		s := int16(v)
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm, AudioFormat{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}, nil
}

var _ Provider = (*Google)(nil)
