// SPDX-License-Identifier: MIT

// Package cli implements the treebuild command-line interface.
//
// The build command reads flat records from JSON, YAML, TOML or bracket text files & writes
// the resulting forest as JSON, bracket text, a terminal tree, Graphviz DOT or SVG. Input
// files are built concurrently, output keeps the argument order.
package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const appName = "treebuild"

// Build information, set through ldflags:
//
//	go build -ldflags "-X gitlab.com/fisherprime/treebuild/internal/cli.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *logrus.Logger

	verbose bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level logrus.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level logrus.Level) { c.Logger.SetLevel(level) }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Treebuild assembles flat records into a forest of trees",
		Long:          `Treebuild links flat records through parent or child references & writes the resulting forest.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if c.verbose {
				c.SetLogLevel(logrus.DebugLevel)
			}
		},
	}

	root.SetVersionTemplate(versionTemplate())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.versionCommand())

	return root
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\ncommit: %s\nbuilt: %s\n", appName, Version, Commit, Date)
		},
	}
}

func versionTemplate() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
