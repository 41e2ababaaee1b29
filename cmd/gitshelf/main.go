// Command gitshelf is a small demonstration CLI over the repository facade:
// init a repository, commit a set of file changes, and inspect the result.
// It is scaffolding around the core library, not a from-scratch
// reimplementation of git's own porcelain.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gitshelf",
		Short:         "inspect and build gitshelf-core repositories",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	log := logrus.New()

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		log.SetLevel(cfg.logrusLevel())
		return nil
	}

	cmd.AddCommand(newInitCmd(log))
	cmd.AddCommand(newCommitCmd(log))
	cmd.AddCommand(newLogCmd(log))
	cmd.AddCommand(newCatFileCmd(log))
	cmd.AddCommand(newLsTreeCmd(log))
	cmd.AddCommand(newUnpackObjectsCmd(log))

	return cmd
}
