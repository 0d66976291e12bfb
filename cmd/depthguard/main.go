// depthguard watches a depth sensor and beeps faster as an obstacle gets
// closer, announcing it once each time it first comes within range.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-depthguard/internal/config"
	"github.com/teslashibe/go-depthguard/internal/log"
	"github.com/teslashibe/go-depthguard/pkg/detector"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "depthguard: %v\n", err)
		os.Exit(2)
	}

	logger := log.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := NewApp(cfg, logger)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(2)
	}

	if err := app.Init(ctx); err != nil {
		app.Shutdown()
		log.Error("initialization failed", "error", err)
		os.Exit(exitCode(err))
	}

	err = app.Run(ctx)
	app.Shutdown()
	if err != nil {
		log.Error("stopped", "error", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var cerr *detector.ConfigurationError
	if errors.As(err, &cerr) {
		return 2
	}
	return 1
}

// loadConfig layers defaults, the optional config file, the environment
// and flags, in that order.
func loadConfig() (config.Config, error) {
	path := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "Web server port (overrides config and "+config.EnvPort+")")
	level := flag.String("log-level", "", "Log level: debug, info, warn, error")
	backend := flag.String("audio", "", "Audio backend: auto, alsa, mock")
	speech := flag.String("speech", "", "Speech provider: google, log, none")
	cueFile := flag.String("cue", "", "WAV file for the beep")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *path != "" {
		var err error
		if cfg, err = config.LoadConfigFile(*path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}

	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			o.Port = port
		case "log-level":
			o.LogLevel = level
		case "audio":
			o.AudioBackend = backend
		case "speech":
			o.SpeechProvider = speech
		case "cue":
			o.CueFile = cueFile
		}
	})
	o.Apply(&cfg)

	return cfg, cfg.Validate()
}
