package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitshelf/gitshelf/plumbing/hash"
	"github.com/gitshelf/gitshelf/repository"
)

func newInitCmd(log *logrus.Logger) *cobra.Command {
	var bare bool
	var sha256 bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "create an empty repository",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().BoolVar(&bare, "bare", false, "create a repository with no working tree")
	cmd.Flags().BoolVar(&sha256, "object-format-sha256", false, "use the SHA-256 object format")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		algo := hash.SHA1
		if sha256 {
			algo = hash.SHA256
		}

		if _, err := repository.Init(dir, repository.InitOptions{
			Bare:      bare,
			Algorithm: algo,
			Log:       logrus.NewEntry(log),
		}); err != nil {
			return err
		}

		shown := dir
		if dir == "." {
			if cwd, err := os.Getwd(); err == nil {
				shown = cwd
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty gitshelf repository in %s\n", shown)
		return nil
	}

	return cmd
}
