// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the logrus logger used by the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/labref/pkg/types"
)

// New returns a logger writing to w (stderr when nil) at cfg.Level in
// cfg.Format. An unknown level is an error; an unknown format falls back
// to text.
func New(cfg types.LogConfig, w io.Writer) (*logrus.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(w)

	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	return logger, nil
}

// Install configures the standard logger the same way as New so that
// package-level logrus calls honor the config.
func Install(cfg types.LogConfig, w io.Writer) (*logrus.Logger, error) {
	l, err := New(cfg, w)
	if err != nil {
		return nil, err
	}
	std := logrus.StandardLogger()
	std.SetOutput(l.Out)
	std.SetLevel(l.GetLevel())
	std.SetFormatter(l.Formatter)
	return std, nil
}
