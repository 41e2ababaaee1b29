package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitshelf/gitshelf/commitbuilder"
	"github.com/gitshelf/gitshelf/plumbing"
	"github.com/gitshelf/gitshelf/repository"
)

func newCommitCmd(log *logrus.Logger) *cobra.Command {
	var message, author, email string
	var adds []string
	var ref string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "build a commit from --add path=content pairs and move a ref to it",
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "gitshelf", "author/committer name")
	cmd.Flags().StringVar(&email, "email", "gitshelf@localhost", "author/committer email")
	cmd.Flags().StringArrayVar(&adds, "add", nil, "path=content of a new file to add, repeatable")
	cmd.Flags().StringVar(&ref, "ref", "refs/heads/main", "reference to advance")
	_ = cmd.MarkFlagRequired("message")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(adds) == 0 {
			return errors.New("gitshelf: commit needs at least one --add path=content")
		}

		repo, err := repository.Open(".", logrus.NewEntry(log))
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		refName := plumbing.ReferenceName(ref)
		parentCommit, err := repo.Resolve(refName)
		hasParent := err == nil

		parentTree := plumbing.Hash{}
		var parents []plumbing.Hash
		if hasParent {
			c, err := repo.Commit(parentCommit)
			if err != nil {
				return fmt.Errorf("read parent commit: %w", err)
			}
			parentTree = c.Tree
			parents = []plumbing.Hash{parentCommit}
		}

		sig := plumbing.Signature{Name: author, Email: email, When: time.Now().UTC()}
		b := commitbuilder.New(repo.Store(), repo.Algorithm(), parentTree, parents...).
			Author(sig).Committer(sig).Message(message)

		for _, spec := range adds {
			path, content, err := splitAddFlag(spec)
			if err != nil {
				return err
			}
			b.Apply(commitbuilder.AddFile{Path: path, Content: []byte(content)})
		}

		commitHash, err := b.Build()
		if err != nil {
			return fmt.Errorf("build commit: %w", err)
		}

		var expectedOld plumbing.Hash
		if hasParent {
			expectedOld = parentCommit
		}
		if err := commitbuilder.UpdateReference(repo.Store(), refName, expectedOld, commitHash); err != nil {
			return fmt.Errorf("update %s: %w", refName, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", commitHash)
		return nil
	}

	return cmd
}

func splitAddFlag(spec string) (path, content string, err error) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("gitshelf: --add value %q must be path=content", spec)
	}
	return parts[0], parts[1], nil
}
