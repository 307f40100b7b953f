package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldRunID       = "run_id"
	FieldJobID       = "job_id"
	FieldRecipientID = "recipient_id"
	FieldCategory    = "category"
	FieldStatus      = "status"
	FieldAttempt     = "attempt"
	FieldAddress     = "address"
	FieldCuit        = "cuit"
	FieldFolder      = "folder"
	FieldCount       = "count"
	FieldError       = "error"
	FieldDuration    = "duration"
)

// New builds the process logger. JSON output uses zap's production config;
// otherwise a console encoder on stdout.
func New(jsonOutput bool, level string) (*zap.SugaredLogger, error) {
	lvl := zap.NewAtomicLevelAt(parseLevel(level))

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = lvl
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core).Sugar(), nil
}

// Nop is used by tests and by components constructed without a logger.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
