package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/32bitkid/minecursor/model"
	"github.com/32bitkid/minecursor/source"
)

func newSourceCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage asset sources",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List asset sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tVERSION\tBUILT-IN")
			for _, s := range root.Sources.Sources() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.ID, s.Name, s.Version, s.BuiltIn)
			}
			return tw.Flush()
		},
	}

	var opts source.ImportOptions
	imp := &cobra.Command{
		Use:   "import ARCHIVE",
		Short: "Import a .jar, .zip or .rar as a user source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			src, err := root.ImportSource(args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", src.ID, src.Name)
			return nil
		},
	}
	imp.Flags().StringVar(&opts.ID, "id", "", "source id (default from the archive)")
	imp.Flags().StringVar(&opts.Name, "name", "", "source name (default from the archive)")

	var kind string
	tree := &cobra.Command{
		Use:   "tree ID [ROOT]",
		Short: "Print the asset tree of a source",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			idx, err := root.Sources.Index(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if kind != "" {
				k, err := model.ParseCursorKind(kind)
				if err != nil {
					return err
				}
				printNode(out, idx.Recommend(k), 0)
				return nil
			}
			if len(args) == 2 {
				n := idx.Root(args[1])
				if n == nil {
					return fmt.Errorf("source %s has no root %q", args[0], args[1])
				}
				printNode(out, n, 0)
				return nil
			}
			for _, n := range idx.Roots() {
				printNode(out, n, 0)
			}
			return nil
		},
	}
	tree.Flags().StringVar(&kind, "recommend", "", "show the recommend tree for a cursor kind")

	cmd.AddCommand(list, imp, tree)
	return cmd
}

func printNode(w io.Writer, n *source.Node, depth int) {
	if n == nil {
		return
	}
	suffix := ""
	switch {
	case n.IsDir():
		suffix = "/"
	case n.IsAnimation():
		suffix = fmt.Sprintf(" [%d frames]", len(n.Frames))
	}
	fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), n.Name, suffix)
	for _, c := range n.Children {
		printNode(w, c, depth+1)
	}
}
