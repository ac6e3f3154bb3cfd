package logger

import (
	"log"

	"go.uber.org/zap"
)

// L is the process-wide sugared logger. It defaults to a no-op logger so
// packages can log from tests without calling Init.
var L = zap.NewNop().Sugar()

// Init replaces the default logger. Call once from main.
func Init(env string) {
	var (
		zl  *zap.Logger
		err error
	)
	if env == "production" {
		zl, err = zap.NewProduction()
	} else {
		zl, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	L = zl.Sugar()
}

// Sync flushes buffered log entries. Safe to defer from main.
func Sync() {
	_ = L.Sync()
}
