package bootstrap

import (
	"fmt"
	"os"

	"loglens/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output. The
// returned atomic level starts at debug and is lowered once configuration is
// loaded.
func InitLogger() (*zap.Logger, *zap.SugaredLogger, zap.AtomicLevel, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Colored levels
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // Readable timestamps
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder      // Short file paths

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	core := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stderr),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), level, nil
}

// InitConfig loads the engine configuration and applies its log level to the
// running logger.
func InitConfig(sugar *zap.SugaredLogger, level zap.AtomicLevel) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	}

	if parsed, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
		level.SetLevel(parsed)
	}

	sugar.Debugw("Config loaded",
		"session_timeout", cfg.Matcher.Timeout,
		"regex_timeout", cfg.Regex.Timeout,
		"parallel_matching", cfg.Optimization.ParallelMatching,
		"workers", cfg.EffectiveWorkers())

	return cfg, nil
}
