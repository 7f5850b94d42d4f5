// rentwise - multi-agent real estate assistant service
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentwise/rentwise/internal/infra/config"
	"github.com/rentwise/rentwise/internal/infra/sqlite"
	"github.com/rentwise/rentwise/internal/server"
	"github.com/rentwise/rentwise/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("rentwise", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(out); err != nil {
		fmt.Fprintf(out, "rentwise: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(out io.Writer) error {
	cfg := config.Load()

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close()
		return fmt.Errorf("run migrations: %w", err)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.HTTPHost
	srvCfg.Port = cfg.HTTPPort
	srv := server.NewServer(db, cfg, srvCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printHelp(out io.Writer) {
	helpText := `rentwise - multi-agent real estate assistant service

Usage:
  rentwise [options]

Options:
  --version    Show version information
  --help       Show this help message

Running with no options starts the HTTP server. Configuration is read from
the environment (HTTP_HOST, HTTP_PORT, DB_PATH, OPENAI_BASE_URL,
OPENAI_API_KEY, ROUTER_MODEL, VISION_MODEL, FAQ_MODEL, LLM_TIMEOUT_SECONDS)
and an optional YAML file pointed at by RENTWISE_CONFIG.

Examples:
  rentwise --version
  HTTP_PORT=9090 rentwise`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
