// Package logging builds the process logger.
package logging

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"metadata-mapper/internal/config"
)

// New returns a logger writing to out with the configured level and format.
func New(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log.level")
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, errors.Newf("unknown log format %q", cfg.Format)
	}

	return log, nil
}
