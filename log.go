// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures NewProductionLogger's rotating-file sink.
type LogConfig struct {
	// Filename is the log file path. Required.
	Filename string
	// MaxSizeMB is the size in megabytes a log file reaches before it is
	// rotated. Zero uses lumberjack's default of 100.
	MaxSizeMB int
	// MaxBackups is how many rotated files to retain. Zero keeps all.
	MaxBackups int
	// MaxAgeDays is how many days to retain old log files. Zero keeps
	// them indefinitely.
	MaxAgeDays int
	// Compress gzip-compresses rotated files.
	Compress bool
	// Level is the minimum enabled log level. Defaults to InfoLevel.
	Level zapcore.Level
}

// NewProductionLogger builds a *zap.Logger that writes JSON-encoded
// entries to a lumberjack-managed rotating file, for long-running
// Context/Socket deployments that don't want a no-op or stderr logger.
// WithLogger attaches the result to Options.
func NewProductionLogger(cfg LogConfig) *zap.Logger {
	sink := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(sink),
		cfg.Level,
	)
	return zap.New(core)
}
