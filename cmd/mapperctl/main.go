// Package main provides mapperctl, the administration tool for a community
// mapper installation. It talks to the database directly and shares the
// server's configuration.
//
// Usage:
//
//	mapperctl migrate
//	mapperctl user create --email ana@example.com --password-stdin
//	mapperctl export --user ana@example.com --out contacts.xlsx
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
