package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finset/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:], cli.Env{}); err != nil {
		fmt.Fprintln(os.Stderr, "finset:", err)
		os.Exit(1)
	}
}
