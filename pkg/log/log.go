package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Logger is the shared process-wide logger. Warnings from size resolution
// and aggregation go through it.
var Logger *zap.Logger

func init() {
	cfg := zap.NewDevelopmentConfig()
	if os.Getenv("PAGEWEIGHT_DEBUG") == "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	var err error
	Logger, err = cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to init default logger: %v", err))
	}
}
