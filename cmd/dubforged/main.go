// Command dubforged runs the dubbing studio API server.
package main

import (
	"os"

	"go.uber.org/zap"

	"dubforge/internal/app"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := app.Run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
