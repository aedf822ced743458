package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"outliner/internal/commands"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.New().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
