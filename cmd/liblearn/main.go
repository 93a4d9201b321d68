package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/liblearn/internal"
	"github.com/starford/liblearn/internal/batch"
	"github.com/starford/liblearn/internal/logging"
	pkgconfig "github.com/starford/liblearn/pkg/config"
)

// reportedError marks an error the application logger has already written.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("source") {
		cfg.Source.Kind = cmd.String("source")
	}
	if cmd.IsSet("go-dir") {
		cfg.Source.GoDir = cmd.String("go-dir")
	}
	if cmd.IsSet("python-path") {
		cfg.Source.PythonPaths = cmd.StringSlice("python-path")
	}
	if cmd.IsSet("meta-dir") {
		cfg.Source.MetaDir = cmd.String("meta-dir")
	}
	if cmd.IsSet("log-level") {
		level, err := logging.ParseLevel(cmd.String("log-level"))
		if err != nil {
			return nil, err
		}
		cfg.App.LogLevel = level
	}
	overrideBool(cmd, "full", &cfg.Deck.Full)
	overrideBool(cmd, "shuffle", &cfg.Deck.Shuffle)
	overrideBool(cmd, "cycle", &cfg.Deck.Cycle)
	overrideBool(cmd, "private", &cfg.Deck.Private)
	overrideBool(cmd, "special", &cfg.Deck.Special)
	if cmd.IsSet("placeholder") && cmd.Bool("placeholder") {
		cfg.Deck.Unresolved = "placeholder"
	}
	if cmd.IsSet("port") {
		cfg.HTTP.Port = int(cmd.Int("port"))
	}
	return cfg, nil
}

func overrideBool(cmd *cli.Command, name string, target *bool) {
	if cmd.IsSet(name) {
		*target = cmd.Bool(name)
	}
}

// withApp wires the application for one command and closes it afterwards.
func withApp(ctx context.Context, cmd *cli.Command, reports bool, fn func(context.Context, *internal.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := []internal.Option{internal.WithConfig(cfg)}
	if reports {
		opts = append(opts, internal.WithReports())
	}
	app, err := internal.New(opts...)
	if err != nil {
		return fmt.Errorf("app init error: %w", err)
	}
	defer app.Close()

	if err := fn(ctx, app); err != nil {
		slog.Error("command failed", slog.String("command", cmd.Name), slog.String("error", err.Error()))
		return reportedError{err}
	}
	return nil
}

func requirePath(cmd *cli.Command) (string, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", fmt.Errorf("%s: a dotted PATH argument is required", cmd.Name)
	}
	return path, nil
}

func deckFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "full", Aliases: []string{"f"}, Usage: "Show the full documentation instead of the synopsis"},
		&cli.BoolFlag{Name: "private", Aliases: []string{"p"}, Usage: "Include private routines"},
		&cli.BoolFlag{Name: "special", Aliases: []string{"x"}, Usage: "Include special routines"},
		&cli.BoolFlag{Name: "placeholder", Usage: "Keep routines without a signature, rendered with a placeholder"},
	}
}

func learn(ctx context.Context, cmd *cli.Command) error {
	path, err := requirePath(cmd)
	if err != nil {
		return err
	}
	return withApp(ctx, cmd, false, func(ctx context.Context, app *internal.App) error {
		return app.Learn(ctx, path)
	})
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.StringSlice("path")
	if file := cmd.String("file"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open targets file: %w", err)
		}
		defer f.Close()
		fromFile, err := batch.ReadPaths(f)
		if err != nil {
			return err
		}
		paths = append(paths, fromFile...)
	}
	record := cmd.Bool("record")
	return withApp(ctx, cmd, record, func(ctx context.Context, app *internal.App) error {
		_, err := app.Batch(ctx, paths, cmd.Bool("ascending"), record)
		return err
	})
}

func history(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, true, func(ctx context.Context, app *internal.App) error {
		return app.History(ctx, int(cmd.Int("limit")))
	})
}

func dump(ctx context.Context, cmd *cli.Command) error {
	path, err := requirePath(cmd)
	if err != nil {
		return err
	}
	return withApp(ctx, cmd, false, func(ctx context.Context, app *internal.App) error {
		name, err := app.Dump(ctx, path, cmd.String("out"))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.Root().Writer, name)
		return nil
	})
}

func serve(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, true, func(ctx context.Context, app *internal.App) error {
		return app.Serve(ctx)
	})
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	return withApp(ctx, cmd, false, func(_ context.Context, app *internal.App) error {
		return app.ServeMCP()
	})
}

func main() {
	cmd := &cli.Command{
		Name:  "liblearn",
		Usage: "Turn the documented routines of a class or module into flash cards",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{Name: "source", Usage: "Where routines come from: go, python or meta"},
			&cli.StringFlag{Name: "go-dir", Usage: "Directory the go command runs in"},
			&cli.StringSliceFlag{Name: "python-path", Usage: "Python module search root (repeatable)"},
			&cli.StringFlag{Name: "meta-dir", Usage: "Directory holding metadata files"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Sources: cli.EnvVars("LIBLEARN_LOG_LEVEL")},
		},
		Commands: []*cli.Command{
			{
				Name:      "learn",
				Usage:     "Study the routines of a class or module interactively",
				ArgsUsage: "PATH",
				Flags: append(deckFlags(),
					&cli.BoolFlag{Name: "shuffle", Aliases: []string{"s"}, Usage: "Shuffle the cards, and again before every cycle"},
					&cli.BoolFlag{Name: "cycle", Usage: "Start over once every card was shown"},
				),
				Action: learn,
			},
			{
				Name:  "batch",
				Usage: "Rank deck quality over many targets",
				Flags: append(deckFlags(),
					&cli.StringSliceFlag{Name: "path", Usage: "Target to score (repeatable)"},
					&cli.StringFlag{Name: "file", Usage: "File with one target per line"},
					&cli.BoolFlag{Name: "ascending", Usage: "Rank the lowest quality first"},
					&cli.BoolFlag{Name: "record", Usage: "Store the run in the report database"},
				),
				Action: runBatch,
			},
			{
				Name:  "history",
				Usage: "List recorded batch runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Number of runs"},
				},
				Action: history,
			},
			{
				Name:      "dump",
				Usage:     "Write a class or module as a metadata file",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "Output directory (default: the configured meta_dir)"},
				},
				Action: dump,
			},
			{
				Name:  "serve",
				Usage: "Serve the deck HTTP API",
				Flags: append(deckFlags(),
					&cli.IntFlag{Name: "port", Usage: "HTTP port"},
				),
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Flags:  deckFlags(),
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			slog.Error("application error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
