// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package logging constructs the process logger.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// A Logger pairs a zap logger with the level that gates it, so that the
// verbosity can be changed after construction.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// New builds a logger writing to w. The level is parsed with
// [zapcore.ParseLevel] and the format is one of [FormatConsole] or
// [FormatJSON].
func New(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	atomicLevel := zap.NewAtomicLevelAt(lvl)

	var enc zapcore.Encoder
	switch format {
	case FormatConsole, "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), atomicLevel)
	return &Logger{
		Logger: zap.New(core, zap.AddCaller()),
		Level:  atomicLevel,
	}, nil
}
