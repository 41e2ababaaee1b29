package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitshelf/gitshelf/repository"
)

func newLogCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "list commits reachable from HEAD in topological order",
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Open(".", logrus.NewEntry(log))
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		it, err := repo.EnumerateCommits()
		if err != nil {
			return fmt.Errorf("enumerate commits: %w", err)
		}

		out := cmd.OutOrStdout()
		ctx := context.Background()
		for {
			h, c, err := it.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s <%s> %s\n", h, c.Author.Name, c.Author.Email, c.Message)
		}
	}

	return cmd
}
