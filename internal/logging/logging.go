// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging builds the zap backed logr.Logger used by the command
// line tools.
package logging

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects verbosity and output format.
type Config struct {
	// Level is the highest logr V-level that is written. 0 logs only
	// Info and Error, 1 adds operation summaries, 4 adds chunk details.
	Level int
	// Development switches to the human readable console encoder.
	Development bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig logs Info and Error as JSON to stderr.
func DefaultConfig() Config {
	return Config{Output: os.Stderr}
}

// New returns a logger for cfg.
func New(cfg Config) logr.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	if cfg.Development {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	// logr V(n) maps to zap level -n.
	level := zap.NewAtomicLevelAt(zapcore.Level(-cfg.Level))
	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zapr.NewLogger(zap.New(core, zap.AddStacktrace(zapcore.DPanicLevel)))
}
