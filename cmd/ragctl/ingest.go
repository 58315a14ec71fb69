package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/techplus-rag/internal/indexer"
)

func (c *cli) ingestPolicyCmd() *cobra.Command {
	var (
		fromGitHub bool
		root       string
	)

	cmd := &cobra.Command{
		Use:   "ingest-policy [files...]",
		Short: "Index policy markdown from local files or GitHub",
		Long: `Parses policy markdown into sections, chunks each section by paragraph,
enriches the chunks and writes them to the index. Re-ingesting a file replaces
all of its previous chunks.

With --github the files are fetched from the repository directory configured
by GITHUB_OWNER, GITHUB_REPO, GITHUB_PATH and GITHUB_REF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromGitHub == (len(args) > 0) {
				return fmt.Errorf("give either policy files or --github")
			}

			ctx := cmd.Context()
			app, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			var src indexer.DocumentSource = indexer.PolicyFiles{Root: root, Paths: args}
			if fromGitHub {
				fetcher, err := app.PolicySource(ctx)
				if err != nil {
					return err
				}
				src = fetcher
			}

			result, err := app.Pipeline.IndexSource(ctx, src)
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromGitHub, "github", false, "fetch policies from the configured GitHub repository")
	cmd.Flags().StringVar(&root, "root", "", "directory the policy files are relative to (default: use file names)")
	return cmd
}

func (c *cli) ingestCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest-catalog <products.json>",
		Short: "Index the product catalog from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Pipeline.IndexSource(ctx, indexer.CatalogFile{Path: args[0]})
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			printResult(cmd, result)
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete and recreate the index collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			clearer, ok := app.Index.(interface {
				ClearCollection(ctx context.Context) error
			})
			if !ok {
				return fmt.Errorf("index does not support reset")
			}
			if err := clearer.ClearCollection(ctx); err != nil {
				return err
			}
			cmd.Println("Collection cleared")
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, result *indexer.IndexResult) {
	cmd.Println()
	cmd.Println("Ingest complete!")
	cmd.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	cmd.Printf("  Chunks: %d\n", result.TotalChunks)
	cmd.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.CommitSHA != "" {
		cmd.Printf("  Commit: %s\n", result.CommitSHA)
	}

	if len(result.FailedDocs) > 0 {
		cmd.Println()
		cmd.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			cmd.Printf("  - %s: %s\n", failed.ID, failed.Reason)
		}
	}
}
