package config

import "go.uber.org/zap"

// NewLogger builds the process logger: JSON in production, console otherwise, at LOG_LEVEL.
// An unparsable level keeps the preset's default.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zc.Level = lvl
	}
	return zc.Build()
}
