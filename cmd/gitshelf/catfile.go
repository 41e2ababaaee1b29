package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/repository"
)

func newCatFileCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file <hash>",
		Short: "print an object's type and raw content",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		h, err := plumbing.FromHex(args[0])
		if err != nil {
			return fmt.Errorf("parse hash: %w", err)
		}

		repo, err := repository.Open(".", logrus.NewEntry(log))
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		obj, err := repo.Store().Object(h)
		if err != nil {
			return fmt.Errorf("read object: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d\n", obj.Type, len(obj.Content))
		_, err = out.Write(obj.Content)
		return err
	}

	return cmd
}
