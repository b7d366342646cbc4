package main

import (
	"fmt"
	"os"

	"github.com/alvmarrod/sitecrawler/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawler",
		Short: "Concurrent website crawler that records page titles",
		Long: `sitecrawler crawls a website graph from a seed URL, fetching pages with a
pool of workers and recording the title of every page it reaches.

Results can be exported as a plain text file and uploaded to a SQLite database.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configureLogging(cmd)
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewUploadCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(cmd *cobra.Command) {
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// setLogLevel applies a level name from the config file unless --verbose won
func setLogLevel(name string) {
	if logrus.GetLevel() == logrus.DebugLevel {
		return
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Warnf("Unknown log level %q, keeping %s", name, logrus.GetLevel())
		return
	}
	logrus.SetLevel(level)
}
