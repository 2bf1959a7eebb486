// Command csvetl loads a CSV file into a relational table.
//
// Usage:
//
//	csvetl [input [destination [table]]]
//
// Defaults come from the environment (see internal/config) and a .env file
// in the working directory, if present.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx)
	stop()
	os.Exit(code)
}
