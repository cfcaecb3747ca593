package observability

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger writing text lines with full timestamps.
func NewLogger(out io.Writer, level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	return log, nil
}
