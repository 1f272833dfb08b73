// Package obs sets up the service's structured logger.
package obs

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the root logger: JSON in production, a human formatter
// otherwise, level driven by cfg.
func New(level string, jsonFormat bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if jsonFormat {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logrus.NewEntry(log)
}
