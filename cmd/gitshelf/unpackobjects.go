package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitshelf/gitshelf/repository"
)

func newUnpackObjectsCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack-objects",
		Short: "read a pack from stdin and write its objects as loose objects",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Open(".", logrus.NewEntry(log))
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		hashes, err := repo.IngestPack(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("ingest pack: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, h := range hashes {
			fmt.Fprintln(out, h)
		}
		return nil
	}

	return cmd
}
