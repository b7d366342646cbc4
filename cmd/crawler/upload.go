package main

import (
	"fmt"

	"github.com/alvmarrod/sitecrawler/internal/config"
	"github.com/alvmarrod/sitecrawler/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewUploadCmd creates the upload command
func NewUploadCmd() *cobra.Command {
	var (
		configPath string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "upload <export-file>",
		Short: "Upload an exported results file to the SQLite database",
		Long: `Upload an exported results file to the SQLite database.

Pages whose URL is already stored are counted as redundant and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			setLogLevel(cfg.LogLevel)

			records, err := storage.ReadTextFile(args[0])
			if err != nil {
				return err
			}

			if err := ensureDir(cfg.DBPath); err != nil {
				return err
			}
			store, err := storage.NewStorage(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			logrus.Infof("Uploading %d pages to %s", len(records), cfg.DBPath)

			result, err := store.UploadPages(cmd.Context(), records, storage.UploadProgressLogger())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added: %d\nRedundant: %d\n", result.Added, result.Redundant)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a JSON or YAML config file")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")

	return cmd
}
