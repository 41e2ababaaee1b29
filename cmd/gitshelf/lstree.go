package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/plumbing/object"
	"github.com/gitshelf/gitshelf/repository"
)

func newLsTreeCmd(log *logrus.Logger) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree [path]",
		Short: "list a tree's entries at HEAD, optionally recursively",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}

		repo, err := repository.Open(".", logrus.NewEntry(log))
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		opt := repository.TopOnly
		if recursive {
			opt = repository.Recursive
		}

		it, err := repo.EnumerateTree(plumbing.Hash{}, path, opt)
		if err != nil {
			return fmt.Errorf("enumerate tree: %w", err)
		}

		out := cmd.OutOrStdout()
		for {
			entryPath, entry, err := it.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s %s\n", entryKindString(entry.Kind), entry.Hash, entryPath)
		}
	}

	return cmd
}

func entryKindString(k object.EntryKind) string {
	if k == object.DirTree {
		return "tree"
	}
	return "blob"
}
