package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"local-gallery/internal/foldertree"
)

func newTreeCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tree <path>...",
		Short: "Print the folder tree built from indexed folder paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forest := foldertree.Build(args)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, forest)
			}
			return printTree(out, forest)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}

// printTree writes one line per node. Virtual nodes, which only group
// indexed folders, are shown in parentheses.
func printTree(w io.Writer, forest []*foldertree.Node) error {
	var err error
	foldertree.Walk(forest, func(n *foldertree.Node, depth int) bool {
		name := n.DisplayName
		if n.IsVirtual {
			name = "(" + name + ")"
		}
		_, err = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
		return err == nil
	})
	return err
}
