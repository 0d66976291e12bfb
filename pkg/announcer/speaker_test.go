package announcer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-depthguard/pkg/audioio"
	"github.com/teslashibe/go-depthguard/pkg/tts"
)

func instantSink() *audioio.MockSink {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.BackendMock
	cfg.MockSpeed = 0
	return audioio.NewMockSink(cfg, nil)
}

func TestSpeaker_CachesSynthesis(t *testing.T) {
	provider := tts.NewMock()
	sink := instantSink()
	s := NewSpeaker(provider, sink, nil)

	for i := 0; i < 3; i++ {
		if err := s.Announce(context.Background(), "Object 3 feet ahead"); err != nil {
			t.Fatalf("announce %d: %v", i, err)
		}
	}

	if n := provider.CallCount("Synthesize"); n != 1 {
		t.Errorf("expected 1 synthesis, got %d", n)
	}
	clips := sink.Clips()
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips played, got %d", len(clips))
	}
	if clips[0].SampleRate != sink.Config().SampleRate {
		t.Errorf("clip not converted to sink rate: %d", clips[0].SampleRate)
	}
}

func TestSpeaker_Warm(t *testing.T) {
	provider := tts.NewMock()
	s := NewSpeaker(provider, instantSink(), nil)

	if err := s.Warm(context.Background(), "Object 3 feet ahead", "", "Picture taken"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if n := provider.CallCount("Synthesize"); n != 2 {
		t.Errorf("expected 2 syntheses, got %d", n)
	}

	if err := s.Announce(context.Background(), "Picture taken"); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if n := provider.CallCount("Synthesize"); n != 2 {
		t.Errorf("announce after warm synthesized again (%d calls)", n)
	}
}

func TestSpeaker_NewAnnouncementInterrupts(t *testing.T) {
	sink := instantSink()
	var calls atomic.Int32
	started := make(chan struct{})
	sink.PlayFunc = func(ctx context.Context, clip audioio.AudioChunk) error {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	s := NewSpeaker(tts.NewMock(), sink, nil)

	first := make(chan error, 1)
	go func() {
		first <- s.Announce(context.Background(), "Object 3 feet ahead")
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first announcement never started")
	}

	if err := s.Announce(context.Background(), "Object 3 feet ahead"); err != nil {
		t.Fatalf("second announce: %v", err)
	}

	select {
	case err := <-first:
		if !errors.Is(err, ErrInterrupted) {
			t.Errorf("expected ErrInterrupted, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first announcement was not interrupted")
	}
}

func TestSpeaker_Errors(t *testing.T) {
	t.Run("synthesis failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		sink := instantSink()
		s := NewSpeaker(tts.WithError(boom), sink, nil)

		if err := s.Announce(context.Background(), "hi"); !errors.Is(err, boom) {
			t.Errorf("expected synthesis error, got %v", err)
		}
		if len(sink.Clips()) != 0 {
			t.Error("nothing should be played")
		}
	})

	t.Run("empty audio", func(t *testing.T) {
		provider := &tts.Mock{
			SynthesizeFunc: func(ctx context.Context, text string) (*tts.AudioResult, error) {
				return &tts.AudioResult{Format: tts.AudioFormat{SampleRate: 24000, Channels: 1}}, nil
			},
		}
		s := NewSpeaker(provider, instantSink(), nil)
		if err := s.Announce(context.Background(), "hi"); !errors.Is(err, tts.ErrEmptyAudio) {
			t.Errorf("expected ErrEmptyAudio, got %v", err)
		}
	})

	t.Run("sink failure", func(t *testing.T) {
		sink := instantSink()
		sink.PlayFunc = func(ctx context.Context, clip audioio.AudioChunk) error {
			return errors.New("device busy")
		}
		s := NewSpeaker(tts.NewMock(), sink, nil)
		err := s.Announce(context.Background(), "hi")
		if err == nil || errors.Is(err, ErrInterrupted) {
			t.Errorf("expected play error, got %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		provider := tts.NewMock()
		s := NewSpeaker(provider, instantSink(), nil)
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := s.Announce(context.Background(), "hi"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if provider.CallCount("Close") != 1 {
			t.Error("provider not closed")
		}
	})
}

func TestLog_Announce(t *testing.T) {
	if err := NewLog(nil).Announce(context.Background(), "Object 3 feet ahead"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
