package main

import (
	"log/slog"
	"os"

	"github.com/idfs-labs/starguide/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("starguide error", "error", err)
		os.Exit(1)
	}
}
