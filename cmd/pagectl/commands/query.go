package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/okian/pagekit/pkg/dom"
)

// errNoMatch is returned when a query matches nothing.
var errNoMatch = errors.New("no match")

func queryCmd(_ *options) *cobra.Command {
	var (
		within string
		all    bool
		text   bool
	)
	cmd := &cobra.Command{
		Use:   "query <file|-> <selector>",
		Short: "Run a CSS selector against an HTML file and print the matches",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var root any = doc.Root()
			if within != "" {
				scope, err := doc.Q(within)
				if err != nil {
					return err
				}
				if scope == nil {
					return fmt.Errorf("%w for --within %q", errNoMatch, within)
				}
				root = scope
			}

			var nodes []*html.Node
			if all {
				nodes, err = doc.QQ(root, args[1])
			} else {
				var n *html.Node
				n, err = doc.Q(root, args[1])
				if n != nil {
					nodes = []*html.Node{n}
				}
			}
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				return fmt.Errorf("%w for %q", errNoMatch, args[1])
			}
			return printNodes(cmd.OutOrStdout(), nodes, text)
		},
	}
	cmd.Flags().StringVar(&within, "within", "", "selector of the element to search inside (default body)")
	cmd.Flags().BoolVar(&all, "all", false, "print every match instead of the first")
	cmd.Flags().BoolVar(&text, "text", false, "print text content instead of HTML")
	return cmd
}

func parseDocument(stdin io.Reader, name string) (*dom.Document, error) {
	if name == "-" {
		return dom.Parse(stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return dom.Parse(f)
}

func printNodes(w io.Writer, nodes []*html.Node, text bool) error {
	for _, n := range nodes {
		var line string
		if text {
			line = dom.Text(n)
		} else {
			var err error
			if line, err = dom.OuterHTML(n); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
