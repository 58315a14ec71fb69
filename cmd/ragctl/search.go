package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/techplus-rag/internal/catalog"
	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/markdown"
)

const snippetLength = 160

func (c *cli) searchCmd() *cobra.Command {
	var (
		corpus   string
		category string
		maxPrice float64
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query through retrieval, deduplication and reranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("-n must not be negative")
			}
			filter, err := searchFilter(corpus, category, maxPrice)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			results := app.Coordinator.Search(ctx, args[0], filter, limit)
			if asJSON {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			printResults(cmd, results)
			return nil
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "restrict to catalog or policy (default: both)")
	cmd.Flags().StringVar(&category, "category", "", "catalog category, e.g. GPU")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price in USD")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

// searchFilter maps the search flags to an index filter. Category and price
// only make sense for the catalog, so they imply it.
func searchFilter(corpus, category string, maxPrice float64) (domain.Filter, error) {
	var f domain.Filter
	switch corpus {
	case "":
	case "catalog":
		f.Kind = domain.KindCatalogItem
	case "policy":
		f.Kind = domain.KindPolicy
	default:
		return f, fmt.Errorf("unknown corpus %q (want catalog or policy)", corpus)
	}
	if maxPrice < 0 {
		return f, fmt.Errorf("--max-price must not be negative")
	}

	if category != "" || maxPrice > 0 {
		if f.Kind == domain.KindPolicy {
			return f, fmt.Errorf("--category and --max-price apply to the catalog only")
		}
		f.Kind = domain.KindCatalogItem
		f.Category = category
		f.MaxPrice = maxPrice
	}
	return f, nil
}

func printResults(cmd *cobra.Command, results []domain.RankedResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	for i, r := range results {
		mark := ""
		if r.Reranked {
			mark = " reranked"
		}
		switch hit := r.Hit.(type) {
		case domain.CatalogHit:
			cmd.Printf("[%d] %s (%s) $%.2f / %s  score=%.3f%s\n", i+1, hit.DisplayName(), hit.Category,
				hit.Price, catalog.FormatVND(catalog.USDToVND(hit.Price)), r.RankScore, mark)
		case domain.PolicyHit:
			cmd.Printf("[%d] %s [%s]  score=%.3f%s\n", i+1, hit.Path, hit.SectionID, r.RankScore, mark)
		}
		cmd.Printf("    %s\n", snippet(r.Text))
	}
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}

func (c *cli) outlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outline <file.md>",
		Short: "Print the heading outline of a policy file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			entries, err := markdown.NewParser().Outline(source)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
			}
			cmd.Print(markdown.RenderOutline(entries))
			return nil
		},
	}
}
