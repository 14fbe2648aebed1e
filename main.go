package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/michaelpento.lv/flashswap/cmd"
	"github.com/michaelpento.lv/flashswap/utils"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	utils.CleanupLogger()
	if err != nil {
		os.Exit(1)
	}
}
