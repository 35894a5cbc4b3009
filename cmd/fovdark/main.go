// Command fovdark runs the storefront and back-office API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fovdark/fovdark/internal/app"
	"github.com/fovdark/fovdark/internal/config"
)

const defaultPort = "8080"

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Error("fovdark exited with error")
		os.Exit(1)
	}
}

// run parses flags and dispatches to the server or the migrator.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fovdark", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	port := fs.String("port", defaultPort, "HTTP listen port")
	migrate := fs.Bool("migrate", false, "run database migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errPort := validatePort(*port); errPort != nil {
		return errPort
	}

	cfg, errLoad := config.LoadFromEnv()
	if errLoad != nil {
		return errLoad
	}
	if strings.TrimSpace(*configPath) != "" {
		cfg.ConfigPath = config.ResolveConfigPath(*configPath)
	}

	if *migrate {
		return app.Migrate(ctx, cfg)
	}
	return app.RunServer(ctx, cfg, *port)
}

// validatePort checks the listen port is numeric and in range.
func validatePort(port string) error {
	n, errParse := strconv.Atoi(strings.TrimSpace(port))
	if errParse != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
