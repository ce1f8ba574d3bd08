package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pulsewatch"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockServer(":9999")
	time.Sleep(100 * time.Millisecond)

	urls := []string{
		"http://localhost:9999/good",
		"http://localhost:9999/slow",
		"http://localhost:9999/missing",
		"http://localhost:9999/flaky",
		"http://localhost:9999/moved",
		"http://localhost:1/refused",
		"not a url",
	}

	m, err := pulsewatch.New(urls,
		pulsewatch.WithInterval(5*time.Second),
		pulsewatch.WithConcurrency(4),
		pulsewatch.WithPort(8080),
		pulsewatch.WithTitle("pulsewatch demo"),
		pulsewatch.WithStatusCallback(func(ev pulsewatch.Event) {
			if ev.Status.State == pulsewatch.StateResolved && !ev.Status.Healthy() {
				slog.Warn("url unhealthy", "url", ev.URL, "status", ev.Status.String())
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  pulsewatch demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Printf("  Monitoring %d URLs: good, slow, missing, flaky, moved,\n", len(urls))
	fmt.Println("  a refused port and a malformed URL")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx); err != nil {
		slog.Error("pulsewatch error", "error", err)
		os.Exit(1)
	}
}
