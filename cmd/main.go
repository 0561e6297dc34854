package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"xbagent/internal/backup"
	"xbagent/internal/config"
	"xbagent/internal/runner"
	"xbagent/internal/storage"
	xblog "xbagent/pkg/log"
	xbs3 "xbagent/pkg/s3"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "xbagent",
	Short: "Periodic xtrabackup agent: replica backup, S3 upload, retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.New(cfgFile)
	if err != nil {
		return err
	}

	logger := xblog.New(cfg.Log)

	// The runner identity and processor budget are resolved once and treated
	// as immutable for the process lifetime.
	var r runner.Runner
	if cfg.Runner.Container != "" {
		docker, err := runner.NewDocker(ctx, cfg.Runner.Container)
		if err != nil {
			logger.Fatal().Err(err).Msg("backup tool runner unavailable")
		}
		r = docker
	} else {
		r = runner.NewLocal()
	}

	procs, err := runner.Processors(ctx, r)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not determine processor budget")
	}
	logger.Info().Str("runner", r.Host()).Int("procs", procs).Msg("backup tool runner ready")

	client, err := xbs3.NewClient(ctx, cfg.S3)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create S3 client")
	}

	local := storage.NewLocal(filepath.Join(cfg.StagingDir, cfg.Database))
	remote := storage.NewRemote(client, cfg.S3.Bucket, path.Join(cfg.S3.Prefix, cfg.Database))

	resolver := backup.NewResolver(cfg.Replicas, logger)
	target, err := resolver.Resolve(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not resolve replica")
	}
	if err := resolver.Acquire(ctx, target); err != nil {
		logger.Fatal().Err(err).Msg("could not connect to replica")
	}

	executor := backup.NewExecutor(r, local, cfg.Database, procs, logger)
	uploader := backup.NewUploader(remote, local, logger)
	cleaner := backup.NewCleaner(local, remote, cfg.Retention.Local, cfg.Retention.Remote, logger)
	scheduler := backup.NewScheduler(cfg.Interval, target, executor, uploader, cleaner, logger)

	if err := scheduler.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("shutting down")
			return nil
		}
		logger.Fatal().Err(err).Msg("backup cycle failed")
	}
	return nil
}
