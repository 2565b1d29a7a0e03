package cmd

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagesnap/internal/browser/dom"
	"github.com/xkilldash9x/pagesnap/internal/observability"
	"github.com/xkilldash9x/pagesnap/internal/service"
	"github.com/xkilldash9x/pagesnap/internal/snapshot"
)

// newLocateCmd creates the `locate` command.
func newLocateCmd() *cobra.Command {
	var showHTML bool

	cmd := &cobra.Command{
		Use:   "locate <file.html> <id|path>",
		Short: "Resolves a snapshot id or path back to its element",
		Long: `Locates an element of an HTML file either by the id it receives in the file's
snapshot or by its snapshot path (for example "body/ul/li[2]"), and prints the element's
paths and markup.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd)
			if err != nil {
				return err
			}
			svc := service.New(cfg, observability.GetLogger())
			defer svc.Close()

			doc, err := svc.ParseFile(args[0])
			if err != nil {
				return err
			}

			var node *html.Node
			if id, convErr := strconv.Atoi(args[1]); convErr == nil {
				node, err = dom.Resolve(svc.Build(doc), doc.HTML(), id)
			} else {
				node, err = dom.Locate(doc.HTML(), args[1])
			}
			if err != nil {
				return err
			}

			path := dom.StructuralPath(node)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:     %s\n", path)
			fmt.Fprintf(out, "xpath:    %s\n", snapshot.AbsoluteXPath(path))
			fmt.Fprintf(out, "anchored: %s\n", dom.AnchoredXPath(node))
			if showHTML {
				var buf bytes.Buffer
				if err := html.Render(&buf, node); err != nil {
					return fmt.Errorf("failed to render element: %w", err)
				}
				fmt.Fprintln(out, buf.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showHTML, "html", true, "print the element's markup")
	return cmd
}
