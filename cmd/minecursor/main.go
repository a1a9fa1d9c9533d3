// Command minecursor renders, installs and manages MineCursor themes from
// the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/32bitkid/minecursor"
	"github.com/32bitkid/minecursor/config"
	"github.com/32bitkid/minecursor/logx"
)

const defaultDataDir = "~/MineCursor Data"

type globals struct {
	dataDir  string
	builtIn  string
	verbose  bool
	warnings bool
}

func (g *globals) open() (*minecursor.Root, error) {
	dir := g.dataDir
	if dir == "" {
		dir = os.Getenv("MINECURSOR_DATA_DIR")
	}
	if dir == "" {
		dir = defaultDataDir
	}
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	root, warnings, err := minecursor.Open(dir, minecursor.Options{BuiltInSources: g.builtIn})
	if err != nil {
		return nil, err
	}
	if g.warnings {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}
	return root, nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "minecursor",
		Short:         "Build Windows cursor themes from Minecraft textures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	f := cmd.PersistentFlags()
	f.StringVarP(&g.dataDir, "data", "d", "", "data directory (default $MINECURSOR_DATA_DIR or "+defaultDataDir+")")
	f.StringVar(&g.builtIn, "builtin", os.Getenv("MINECURSOR_BUILTIN_SOURCES"), "directory of built-in sources")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output")
	f.BoolVarP(&g.warnings, "warnings", "w", false, "print load warnings")

	cmd.AddCommand(
		newThemeCmd(g),
		newSourceCmd(g),
		newRenderCmd(g),
		newInstallCmd(g),
		newUninstallCmd(g),
	)
	return cmd
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "minecursor:", err)
		os.Exit(1)
	}
}
