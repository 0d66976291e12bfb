// audio-test checks the alert audio path on this machine: it plays the
// beep cue a few times at a given cadence and optionally speaks a phrase.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-depthguard/internal/config"
	"github.com/teslashibe/go-depthguard/internal/log"
	"github.com/teslashibe/go-depthguard/pkg/announcer"
	"github.com/teslashibe/go-depthguard/pkg/audioio"
	"github.com/teslashibe/go-depthguard/pkg/cue"
	"github.com/teslashibe/go-depthguard/pkg/tts"
)

func main() {
	backend := flag.String("audio", "auto", "Audio backend: auto, alsa, mock")
	device := flag.String("device", "default", "ALSA output device")
	cueFile := flag.String("cue", "", "WAV file for the beep (default: synthesized tone)")
	beeps := flag.Int("beeps", 3, "Number of beeps")
	interval := flag.Duration("interval", 500*time.Millisecond, "Pause between beeps")
	say := flag.String("say", "", "Phrase to speak through Google TTS after the beeps")
	flag.Parse()

	logger := log.Init("debug", "")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	acfg := audioio.DefaultConfig()
	acfg.Backend = audioio.Backend(*backend)
	acfg.Device = *device
	if err := acfg.Validate(); err != nil {
		log.Error("bad audio config", "error", err)
		os.Exit(2)
	}

	sink, err := audioio.NewSink(acfg, logger)
	if err != nil {
		log.Error("open audio output", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	ccfg := cue.DefaultConfig()
	ccfg.File = config.ExpandPath(*cueFile)
	player := cue.Load(ccfg, sink, logger)
	if err := player.Prepare(); err != nil {
		log.Error("prepare cue", "error", err)
		os.Exit(1)
	}

	done := make(chan bool, 1)
	player.SetFinishedHandler(func(ok bool) { done <- ok })

	clip := player.Clip()
	log.Info("playing cue", "backend", sink.Name(), "beeps", *beeps, "clip", clip.Duration())
	for i := 0; i < *beeps; i++ {
		if err := player.Play(); err != nil {
			log.Error("play failed", "beep", i+1, "error", err)
			os.Exit(1)
		}
		select {
		case ok := <-done:
			log.Info("beep finished", "beep", i+1, "ok", ok)
		case <-ctx.Done():
			player.Stop()
			return
		}
		select {
		case <-time.After(*interval):
		case <-ctx.Done():
			return
		}
	}

	if *say == "" {
		return
	}

	provider, err := tts.NewGoogle(ctx,
		tts.WithAPIKey(os.Getenv(config.EnvTTSKey)),
		tts.WithLogger(logger),
	)
	if err != nil {
		log.Error("speech provider", "error", err)
		os.Exit(1)
	}
	speaker := announcer.NewSpeaker(provider, sink, logger)
	defer speaker.Close()

	if err := speaker.Announce(ctx, *say); err != nil {
		log.Error("announce failed", "error", err)
		os.Exit(1)
	}
}
