package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/listing-feed-harvester/internal/app"
	"github.com/samvad-hq/listing-feed-harvester/internal/config"
	"github.com/samvad-hq/listing-feed-harvester/internal/logger"
	"github.com/samvad-hq/listing-feed-harvester/internal/storage"
	"github.com/samvad-hq/listing-feed-harvester/pkg/sources"
)

// overrides holds command line values that take precedence over the environment.
type overrides struct {
	sourcesFile    string
	publishersFile string
	outputDir      string
	allowPartial   bool
}

func newRootCmd() *cobra.Command {
	var ov overrides

	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Scrape listing sites into one combined feed.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvest(cmd, ov)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&ov.sourcesFile, "sources", "", "sources file (YAML or JSON); built-in list when empty")
	flags.StringVar(&ov.publishersFile, "publishers", "", "publishers file (YAML or JSON)")
	flags.StringVar(&ov.outputDir, "output-dir", "", "directory the feed file is written to")
	flags.BoolVar(&ov.allowPartial, "allow-partial", false, "publish the feed when some sources fail")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Harvest all sources once and publish the feed (default).",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runHarvest(cmd, ov)
			},
		},
		newSourcesCmd(&ov),
		newHistoryCmd(&ov),
	)
	return root
}

func loadConfig(cmd *cobra.Command, ov overrides) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("sources") {
		cfg.SourcesFile = ov.sourcesFile
	}
	if flags.Changed("publishers") {
		cfg.PublishersFile = ov.publishersFile
	}
	if flags.Changed("output-dir") {
		if ov.outputDir == "" {
			return nil, fmt.Errorf("--output-dir must not be empty")
		}
		cfg.OutputDir = ov.outputDir
	}
	if flags.Changed("allow-partial") {
		cfg.AllowPartial = ov.allowPartial
	}
	return cfg, nil
}

func runHarvest(cmd *cobra.Command, ov overrides) error {
	cfg, err := loadConfig(cmd, ov)
	if err != nil {
		return err
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("harvester starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	harvester, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize harvester", "error", err.Error())
		return err
	}
	defer harvester.Close()

	if _, err := harvester.Run(ctx); err != nil {
		logger.ErrorObj("harvest failed", "error", err.Error())
		return fmt.Errorf("harvester run: %w", err)
	}
	return nil
}

func newSourcesCmd(ov *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Validate and print the configured sources.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *ov)
			if err != nil {
				return err
			}
			reg, err := sources.LoadRegistry(cfg.SourcesFile)
			if err != nil {
				return fmt.Errorf("load sources registry: %w", err)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			enc.SetIndent(2)
			return enc.Encode(map[string]any{"sources": reg.All()})
		},
	}
}

func newHistoryCmd(ov *overrides) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *ov)
			if err != nil {
				return err
			}
			store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
				RunTTL:          cfg.StorageTTL,
				CleanupInterval: cfg.StorageCleanupInterval,
			})
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			defer store.Close()

			runs, err := store.Runs(limit)
			if err != nil {
				return fmt.Errorf("read run history: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range runs {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list; 0 lists all")
	return cmd
}
