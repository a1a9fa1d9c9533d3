package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/32bitkid/minecursor/install"
)

func installOptions(system, aero bool) (install.Options, error) {
	reg, err := install.NewRegistry()
	if err != nil {
		return install.Options{}, err
	}
	opts := install.Options{Registry: reg, Cursors: install.NewSystemCursors()}
	if system {
		opts.Target = install.SystemTarget
	}
	if aero {
		opts.Missing = install.AeroDefault
	}
	return opts, nil
}

func newInstallCmd(g *globals) *cobra.Command {
	var system, aero bool
	cmd := &cobra.Command{
		Use:   "install THEME",
		Short: "Install a theme as a Windows cursor scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := installOptions(system, aero)
			if err != nil {
				return err
			}
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()

			out := cmd.OutOrStdout()
			opts.Progress = func(p install.Progress) {
				fmt.Fprintf(out, "[%d/%d] %s\n", p.Done, p.Total, p.Project)
			}
			res, err := root.Install(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			fmt.Fprintf(out, "installed %s into %s\n", res.Scheme, res.Dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "install for every user (needs elevation)")
	cmd.Flags().BoolVar(&aero, "aero", false, "use the Aero cursors for kinds the theme lacks")
	return cmd
}

func newUninstallCmd(g *globals) *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "uninstall THEME",
		Short: "Remove a theme's cursor scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := installOptions(system, false)
			if err != nil {
				return err
			}
			root, err := g.open()
			if err != nil {
				return err
			}
			defer root.Close()
			t, err := root.Themes.Get(args[0])
			if err != nil {
				return err
			}
			opts.DataDir = root.Path
			return install.New(opts).Uninstall(t)
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "remove the machine-wide scheme")
	return cmd
}
