package inject

import (
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/dispatch"
)

// LogInjector only logs the primitives it is asked to perform. It backs the
// dry-run mode and is always available.
type LogInjector struct {
	logger *slog.Logger
}

var _ dispatch.Injector = (*LogInjector)(nil)

// NewLogInjector returns a LogInjector writing to logger.
func NewLogInjector(logger *slog.Logger) *LogInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogInjector{logger: logger}
}

func (l *LogInjector) IsAvailable() bool { return true }

func (l *LogInjector) Swipe(dir dispatch.Direction) error {
	l.logger.Info("inject swipe", "direction", dir.String())
	return nil
}

func (l *LogInjector) Tap(x, y float64, d time.Duration) error {
	l.logger.Info("inject tap", "x", x, "y", y, "duration", d)
	return nil
}

func (l *LogInjector) VolumeDown() error {
	l.logger.Info("inject volume down")
	return nil
}
