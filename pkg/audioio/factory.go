package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSink creates an audio sink with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected,
// falling back to the mock sink when no device tool is installed.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audioio")

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = detectBestBackend()
	}

	logger.Info("creating audio sink",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)

	switch backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendALSA:
		sink, err := newALSASink(cfg, logger)
		if err != nil && cfg.Backend == BackendAuto {
			logger.Warn("ALSA unavailable, using mock sink", "error", err)
			return NewMockSink(cfg, logger), nil
		}
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func detectBestBackend() Backend {
	if runtime.GOOS == "linux" {
		return BackendALSA
	}
	return BackendMock
}
