package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"ollm-bridge/internal/config"
	"ollm-bridge/internal/generator/ollm"
	"ollm-bridge/internal/server"
)

const serveUsage = `Usage:
  ollm-bridge serve --config <path> [--port <port>]

Flags:
  --config string   Path to YAML configuration file (required)
  --port   int      Override server port from configuration

Environment:
  OLLM_BASE_URL     Override the generator base URL (also read from .env)`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if cfgPath == "" {
		return errors.New("serve command requires --config <path>")
	}

	// A missing .env file is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if baseURL := os.Getenv("OLLM_BASE_URL"); baseURL != "" {
		cfg.Generator.BaseURL = baseURL
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	gen := ollm.NewClient(cfg.Generator.BaseURL, cfg.Generator.HeaderTimeout())

	srv, err := server.New(cfg, gen)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
