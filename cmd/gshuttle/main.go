package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/franksops/goshuttle/config"
	"github.com/franksops/goshuttle/engine"
	"github.com/franksops/goshuttle/logger"
	"github.com/franksops/goshuttle/provider"
	"github.com/franksops/goshuttle/ui"
)

func main() {
	app := &cli.App{
		Name:  "gshuttle",
		Usage: "transfer files from an SFTP server to an object-storage bucket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Usage:    "remote source path, may contain one '*' wildcard",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "bucket",
				Usage:    "destination bucket (gs://name or s3://name)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "destination object path; empty uses the source base name",
			},
			&cli.StringFlag{
				Name:  "mime-type",
				Value: engine.DefaultMimeType,
				Usage: "mime type applied to uploaded objects",
			},
			&cli.BoolFlag{
				Name:  "gzip",
				Usage: "gzip-compress objects in flight",
			},
			&cli.BoolFlag{
				Name:  "move",
				Usage: "delete each source file after a successful transfer",
			},
			&cli.BoolFlag{
				Name:  "stream",
				Usage: "stream directly without local disk buffering",
			},
			&cli.StringFlag{
				Name:  "stream-method",
				Value: "upload_from_file",
				Usage: "streaming technique: upload_from_file or getfo",
			},
			&cli.BoolFlag{
				Name:  "prefetch",
				Value: true,
				Usage: "enable read-ahead pipelining on retrieval",
			},
			&cli.IntFlag{
				Name:  "max-prefetch-requests",
				Usage: "bound on concurrent prefetch requests (0 = unbounded)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 1,
				Usage: "number of files transferred at once",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "render live transfer progress (limits --concurrency to 1)",
			},
			&cli.BoolFlag{
				Name:  "local-source",
				Usage: "read from the local filesystem instead of SFTP (development)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("transfer failed")
	}
}

func run(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Log.Level)

	mode, err := engine.ParseStreamMode(c.Bool("stream"), c.String("stream-method"))
	if err != nil {
		return err
	}

	spec := engine.TransferSpec{
		SourcePath:                    c.String("source"),
		DestinationBucket:             c.String("bucket"),
		DestinationPath:               c.String("dest"),
		MimeType:                      c.String("mime-type"),
		Gzip:                          c.Bool("gzip"),
		MoveObject:                    c.Bool("move"),
		Mode:                          mode,
		Prefetch:                      c.Bool("prefetch"),
		MaxConcurrentPrefetchRequests: c.Int("max-prefetch-requests"),
		Concurrency:                   c.Int("concurrency"),
	}.Normalized()

	if err := spec.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := buildSource(cfg, c, spec)
	if err != nil {
		return err
	}
	if closer, ok := src.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	store, err := buildStore(ctx, cfg, c.String("bucket"))
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	if !c.Bool("tui") {
		eng := engine.New(src, store, engine.WithLogger(logger.Log))
		return eng.Run(ctx, spec)
	}

	return runWithTUI(ctx, src, store, tuiTransferSpec(spec))
}

// tuiTransferSpec adjusts a spec for a TUI run. The view's per-file progress
// accounting assumes one file in flight at a time, so concurrency is clamped.
func tuiTransferSpec(spec engine.TransferSpec) engine.TransferSpec {
	if spec.Concurrency > 1 {
		logger.Log.Warn().
			Int("concurrency", spec.Concurrency).
			Msg("concurrency is limited to 1 while the TUI is enabled")
		spec.Concurrency = 1
	}
	return spec
}

func runWithTUI(ctx context.Context, src provider.SourceFileSystem, store provider.ObjectStore, spec engine.TransferSpec) error {
	// Resolve up front so the view knows how many files are coming. Run
	// resolves again; listing twice is cheap relative to the transfer.
	pairs, err := engine.New(src, store).ResolvePairs(ctx, spec)
	if err != nil {
		return err
	}

	state := ui.NewState(spec.SourcePath, spec.DestinationBucket, string(spec.Mode), len(pairs))
	program := tea.NewProgram(ui.NewModel(state), tea.WithAltScreen())

	eng := engine.New(src, store,
		engine.WithLogger(logger.Log),
		engine.WithProgressReporter(state),
	)

	runErr := make(chan error, 1)
	go func() {
		err := eng.Run(ctx, spec)
		state.Finish(err)
		runErr <- err
	}()

	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				program.Send(ui.UpdateMsg{})
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	return <-runErr
}

func buildSource(cfg *config.Config, c *cli.Context, spec engine.TransferSpec) (provider.SourceFileSystem, error) {
	if c.Bool("local-source") {
		return provider.NewLocalFileSystem(), nil
	}

	return provider.NewSFTPFileSystem(provider.SFTPConfig{
		Host:                  cfg.SFTP.Host,
		Port:                  cfg.SFTP.Port,
		User:                  cfg.SFTP.User,
		Password:              cfg.SFTP.Password,
		PrivateKeyPath:        cfg.SFTP.PrivateKeyPath,
		KnownHostKey:          cfg.SFTP.KnownHostKey,
		Prefetch:              spec.Prefetch,
		MaxConcurrentRequests: spec.MaxConcurrentPrefetchRequests,
		DialTimeout:           cfg.SFTP.DialTimeout(),
	})
}

func buildStore(ctx context.Context, cfg *config.Config, bucket string) (provider.ObjectStore, error) {
	if strings.HasPrefix(bucket, "s3://") {
		return provider.NewS3Store(ctx)
	}
	return provider.NewGCSStore(ctx, cfg.GCS.CredentialsFile)
}
