package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/go-depthguard/internal/config"
	"github.com/teslashibe/go-depthguard/pkg/alert"
	"github.com/teslashibe/go-depthguard/pkg/announcer"
	"github.com/teslashibe/go-depthguard/pkg/audioio"
	"github.com/teslashibe/go-depthguard/pkg/cue"
	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/detector"
	"github.com/teslashibe/go-depthguard/pkg/metrics"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
	"github.com/teslashibe/go-depthguard/pkg/tts"
	"github.com/teslashibe/go-depthguard/pkg/web"
)

// App wires the pipeline: frames -> detector -> scheduler -> cue/announcer.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	reg    *prometheus.Registry

	sink      audioio.Sink
	speaker   *announcer.Speaker
	announcer alert.Announcer
	scheduler *alert.Scheduler
	detector  *detector.Detector
	web       *web.Server

	fatal chan error
}

// NewApp checks cfg and returns an uninitialized App.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger, fatal: make(chan error, 1)}, nil
}

// Init creates every component. A region that does not fit the sensor is
// reported as a *detector.ConfigurationError before any audio starts.
func (a *App) Init(ctx context.Context) error {
	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Init(a.reg)

	sink, err := audioio.NewSink(a.cfg.Audio, a.logger)
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	a.sink = sink

	player := cue.Load(a.cfg.Cue, sink, a.logger)
	if err := player.Prepare(); err != nil {
		a.logger.Warn("cue prepare failed", "error", err)
	}

	a.announcer = a.newAnnouncer(ctx)

	a.scheduler = alert.NewScheduler(player,
		alert.WithLogger(a.logger),
		alert.WithAnnouncer(a.announcer, a.cfg.Alert.Announcement),
	)

	a.detector = detector.New(a.cfg.Region, proximity.NewMachine(a.cfg.Alert), a.scheduler,
		detector.WithLogger(a.logger),
		detector.WithQueueSize(a.cfg.Detector.QueueSize),
		detector.WithSampler(depth.Fastest),
	)
	if err := a.detector.Validate(a.cfg.Sensor.Width, a.cfg.Sensor.Height); err != nil {
		return err
	}

	if a.cfg.Web.Enabled {
		a.web = web.NewServer(
			web.Config{Port: a.cfg.Web.Port, StaticDir: a.cfg.Web.StaticDir},
			a.detector,
			web.WithLogger(a.logger),
			web.WithAlertConfig(a.cfg.Alert),
			web.WithPictureAnnouncer(a.announcer, a.cfg.Speech.PicturePhrase),
			web.WithGatherer(a.reg),
			web.WithFatalHandler(a.reportFatal),
		)
	}

	a.logger.Info("depthguard initialized",
		"region", a.cfg.Region.String(),
		"sensor", fmt.Sprintf("%dx%d", a.cfg.Sensor.Width, a.cfg.Sensor.Height),
		"threshold_m", a.cfg.Alert.ThresholdMeters,
		"audio", sink.Name(),
		"speech", a.cfg.Speech.Provider,
	)
	return nil
}

// newAnnouncer builds the configured voice. Speech is best effort: a
// provider that cannot be created falls back to logging the phrase.
func (a *App) newAnnouncer(ctx context.Context) alert.Announcer {
	switch a.cfg.Speech.Provider {
	case config.SpeechNone:
		return nil
	case config.SpeechLog:
		return announcer.NewLog(a.logger)
	}

	opts := append(a.cfg.Speech.TTSOptions(), tts.WithLogger(a.logger))
	provider, err := tts.NewGoogle(ctx, opts...)
	if err != nil {
		a.logger.Warn("speech provider unavailable, announcements will be logged only", "error", err)
		return announcer.NewLog(a.logger)
	}

	a.speaker = announcer.NewSpeaker(provider, a.sink, a.logger)
	go func() {
		wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := a.speaker.Warm(wctx, a.cfg.Alert.Announcement, a.cfg.Speech.PicturePhrase); err != nil {
			a.logger.Warn("speech warm-up failed", "error", err)
		}
	}()
	return a.speaker
}

// Run blocks until ctx is done or a component fails. A configuration
// failure reported by a frame source stops everything and is returned.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	webErr := make(chan error, 1)
	webDone := a.web == nil
	if a.web != nil {
		go func() { webErr <- a.web.Run(ctx) }()
	}

	detErr := make(chan error, 1)
	detDone := false
	go func() { detErr <- a.detector.Run(ctx) }()

	var err error
	select {
	case err = <-detErr:
		detDone = true
	case err = <-webErr:
		webDone = true
	case err = <-a.fatal:
	case <-ctx.Done():
	}
	cancel()

	if !detDone {
		if derr := <-detErr; err == nil {
			err = derr
		}
	}
	if !webDone {
		if werr := <-webErr; err == nil {
			err = werr
		}
	}
	return err
}

func (a *App) reportFatal(err error) {
	select {
	case a.fatal <- err:
	default:
	}
}

// Shutdown stops audio and releases resources.
func (a *App) Shutdown() {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
	if a.sink != nil {
		a.sink.Close()
	}
	a.logger.Info("depthguard stopped")
}
