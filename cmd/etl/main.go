// Command etl ingests the USGS earthquake feed into the raw layer of the data
// lake. An external scheduler invokes "etl run" once per data interval and
// retries on a non-zero exit status.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		slog.Error("etl failed", "error", err)
		stop()
		os.Exit(1)
	}
}
