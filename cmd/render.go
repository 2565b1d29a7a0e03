package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pagesnap/api/schemas"
	"github.com/xkilldash9x/pagesnap/internal/domstate"
	"github.com/xkilldash9x/pagesnap/internal/observability"
)

// newRenderCmd creates the `render` command.
func newRenderCmd() *cobra.Command {
	var (
		textOnly      bool
		includeHidden bool
		index         int
	)

	cmd := &cobra.Command{
		Use:   "render <snapshot.json|->",
		Short: "Renders a saved snapshot as indexed text",
		Long: `Reads snapshot JSON written by "pagesnap snapshot" (a page envelope, an array of
them, or a bare node map) and prints the indexed element listing. --text prints the page
text instead; --index prints a single highlighted element.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			pages, err := decodeSnapshots(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, ps := range pages {
				state, err := domstate.New(ps.Snapshot, ps.URL, ps.Title,
					domstate.WithLogger(observability.GetLogger()))
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}

				switch {
				case index > 0:
					el, ok := state.ElementByIndex(index)
					if !ok {
						return fmt.Errorf("no element with highlight index %d", index)
					}
					fmt.Fprintf(out, "[%d] <%s> %s\n%s\n", el.HighlightIndex, el.TagName, el.XPath, el.TextContent(includeHidden))
				case textOnly:
					if state.Root != nil {
						fmt.Fprintln(out, state.Root.TextContent(includeHidden))
					}
				default:
					fmt.Fprintln(out, state.String())
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&textOnly, "text", false, "print the page text instead of the element listing")
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "include text of invisible elements")
	cmd.Flags().IntVar(&index, "index", 0, "print only the element with this highlight index")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	path, err := homedir.Expand(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshots accepts an array of page snapshots, a single page snapshot, or a bare node
// map.
func decodeSnapshots(data []byte) ([]*schemas.PageSnapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("snapshot input is empty")
	}

	if trimmed[0] == '[' {
		pages, err := schemas.DecodePageSnapshots(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshots: %w", err)
		}
		return pages, nil
	}

	var fields map[string]json.RawMessage
	if err := wire.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w: %v", schemas.ErrInvalidSnapshot, err)
	}
	if _, ok := fields["snapshot"]; ok {
		page, err := schemas.DecodePageSnapshot(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		return []*schemas.PageSnapshot{page}, nil
	}

	snap, err := schemas.DecodeSnapshot(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return []*schemas.PageSnapshot{{Snapshot: snap}}, nil
}
