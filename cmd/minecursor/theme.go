package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/32bitkid/minecursor/model"
)

func newThemeCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage stored themes",
	}

	var deleted bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()

			themes := root.Themes.Themes()
			if deleted {
				themes = root.Themes.Deleted()
			}
			themes = ordered(themes, root.Config.ThemeKindOrder, root.Config.ShowHiddenThemes)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tPROJECTS\tSTATE")
			for _, t := range themes {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%d\t%v\n", t.ID, t.Name, t.Type, t.BaseSize, len(t.Projects), root.Themes.State(t.ID))
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&deleted, "deleted", false, "list deleted themes")

	var author string
	var size int
	create := &cobra.Command{
		Use:   "new NAME",
		Short: "Create an empty theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			if author == "" {
				author = root.Config.DefaultAuthor
			}
			t := model.NewTheme(args[0], author, size)
			if err := root.Themes.Add(t); err != nil {
				return err
			}
			if err := root.Themes.Save(t.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return nil
		},
	}
	create.Flags().StringVar(&author, "author", "", "theme author")
	create.Flags().IntVar(&size, "size", 32, "cursor base size")

	cmd.AddCommand(
		list,
		create,
		themeAction(g, "delete", "Move a theme to the backup directory", func(r rootThemes, id string) error { return r.Delete(id) }),
		themeAction(g, "restore", "Restore a deleted theme", func(r rootThemes, id string) error { return r.Restore(id) }),
		&cobra.Command{
			Use:   "clear",
			Short: "Permanently remove deleted themes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				root, err := g.open()
				if err != nil {
					return err
				}
				defer root.Close()
				return root.Themes.Clear()
			},
		},
	)
	return cmd
}

type rootThemes interface {
	Delete(id string) error
	Restore(id string) error
}

func themeAction(g *globals, use, short string, fn func(rootThemes, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			for _, id := range args {
				if err := fn(root.Themes, id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// ordered sorts themes by the configured type order, dropping hidden
// types unless shown.
func ordered(themes []*model.Theme, order []model.ThemeType, showHidden bool) []*model.Theme {
	var out []*model.Theme
	for _, typ := range order {
		for _, t := range themes {
			if t.Type == typ {
				out = append(out, t)
			}
		}
	}
	if showHidden {
		for _, t := range themes {
			if !containsType(order, t.Type) {
				out = append(out, t)
			}
		}
	}
	return out
}

func containsType(order []model.ThemeType, typ model.ThemeType) bool {
	for _, o := range order {
		if o == typ {
			return true
		}
	}
	return false
}
