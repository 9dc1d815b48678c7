package search

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/codeseek/internal/app"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
)

// Hit is one search result as printed.
type Hit struct {
	Collection string        `json:"collection"`
	Record     record.Record `json:"record"`
	Cover      string        `json:"cover,omitempty"`
	Text       string        `json:"text"`
}

// Result is the printed lookup outcome.
type Result struct {
	Code  string `json:"code"`
	Found bool   `json:"found"`
	Hits  []Hit  `json:"hits"`
	Cover string `json:"cover,omitempty"`
}

// Command creates the one-shot lookup command.
func Command(ctx *app.Context) *cobra.Command {
	var noCover bool

	cmd := &cobra.Command{
		Use:   "search <code>",
		Short: "Look up a catalog code",
		Long:  "Search every collection for a catalog code and print the hits and cover as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			if code == "" {
				return fmt.Errorf("code cannot be empty")
			}

			a, err := app.Start(cmd.Context(), ctx.Settings)
			if err != nil {
				return fmt.Errorf("record store unavailable: %w", err)
			}
			defer func() { _ = a.Close() }()

			hits, err := a.Searcher.Search(cmd.Context(), code)
			if err != nil {
				return err
			}

			result := Result{Code: code, Found: len(hits) > 0, Hits: make([]Hit, 0, len(hits))}
			for _, hit := range hits {
				h := Hit{
					Collection: hit.Collection,
					Record:     hit.Record,
					Text:       render.PlainText(render.Caption(hit)),
				}
				if !noCover {
					h.Cover = a.Pipeline.CoverFor(cmd.Context(), hit, code)
				}
				result.Hits = append(result.Hits, h)
			}
			if !result.Found && !noCover {
				result.Cover, _ = a.Pipeline.Resolve(cmd.Context(), code)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&noCover, "no-cover", false, "Skip cover resolution")

	return cmd
}
