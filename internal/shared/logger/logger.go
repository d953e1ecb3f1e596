package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	once   sync.Once
)

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instace.
// APP_ENV=production selects the JSON production config, anything else the development config.
func GetLogger() *zap.Logger {
	once.Do(func() {
		var cfg zap.Config
		if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
			level.SetLevel(zap.DebugLevel)
		}
		if raw := os.Getenv("LOG_LEVEL"); raw != "" {
			_ = SetLevel(raw)
		}
		cfg.Level = level

		var err error
		logger, err = cfg.Build()
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}

// SetLevel changes the level of the shared logger at runtime.
func SetLevel(raw string) error {
	lvl, err := zapcore.ParseLevel(raw)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}
