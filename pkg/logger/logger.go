package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init so packages
// and tests can log without setup.
var Log = logrus.New()

// Options selects the logger level and output format.
// Empty fields fall back to LOG_LEVEL / LOG_FORMAT, then to info/text.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init configures the global logger. Call it once from main.
func Init(opts Options) {
	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)

	format := opts.Format
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if opts.Output != nil {
		Log.SetOutput(opts.Output)
	} else {
		Log.SetOutput(os.Stdout)
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
