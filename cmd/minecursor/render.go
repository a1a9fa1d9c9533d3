package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/32bitkid/minecursor/cursor"
	"github.com/32bitkid/minecursor/install"
	"github.com/32bitkid/minecursor/model"
	"github.com/32bitkid/minecursor/render"
)

func newRenderCmd(g *globals) *cobra.Command {
	var out string
	var gifs bool
	cmd := &cobra.Command{
		Use:   "render THEME [PROJECT...]",
		Short: "Write a theme's cursor files without installing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			t, err := root.Themes.Get(args[0])
			if err != nil {
				return err
			}
			projects := t.Projects
			if len(args) > 1 {
				projects = nil
				for _, id := range args[1:] {
					p := t.Project(id)
					if p == nil {
						return fmt.Errorf("theme %s has no project %s", t.ID, id)
					}
					projects = append(projects, p)
				}
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			for _, p := range projects {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				path, err := renderProject(t, p, out, gifs)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&gifs, "gif", false, "also write a GIF preview of each project")
	return cmd
}

func renderProject(t *model.Theme, p *model.Project, dir string, gifs bool) (string, error) {
	frames, warnings, err := render.RenderAll(p)
	if err != nil {
		return "", err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	path := filepath.Join(dir, install.CursorFileName(p))
	if err := cursor.WriteProject(path, p, frames, t.Author); err != nil {
		return "", err
	}
	if gifs {
		f, err := os.Create(path + ".gif")
		if err != nil {
			return "", err
		}
		defer f.Close()
		if err := render.WriteGIF(f, p); err != nil {
			return "", err
		}
	}
	return path, nil
}
