package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ledgernotes/internal"
	pkgconfig "github.com/starford/ledgernotes/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func userArg(cmd *cli.Command) (string, error) {
	user := strings.TrimSpace(cmd.Args().First())
	if user == "" {
		return "", fmt.Errorf("%s: user argument is required", cmd.Name)
	}
	return user, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func entries(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunEntries(ctx, user, os.Stdout, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunResolve(ctx, user, os.Stdout, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol.
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "ledgernotes",
		Usage:   "Read per-user timestamped notes stored as ordered maps on a ledger",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the background refresher",
				Action: serve,
			},
			{
				Name:      "entries",
				Usage:     "Print a user's entries, newest first, as JSON",
				ArgsUsage: "<user>",
				Action:    entries,
			},
			{
				Name:      "resolve",
				Usage:     "Print how a user's storage address resolves",
				ArgsUsage: "<user>",
				Action:    resolve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
