// SPDX-License-Identifier: MIT
package cli

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// newLogger creates a logger writing timestamped text to w.
func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.00",
	})

	return logger
}

// progress logs the completion of an operation with its elapsed time.
type progress struct {
	logger logrus.FieldLogger
	start  time.Time
}

func newProgress(logger logrus.FieldLogger) *progress {
	return &progress{logger: logger, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond.
func (p *progress) done(msg string) {
	p.logger.WithField("elapsed", time.Since(p.start).Round(time.Millisecond)).Info(msg)
}
