package main

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recera/voyager/cmd/voyager/internal/ui"
	"github.com/recera/voyager/pkg/debug"
	"github.com/recera/voyager/pkg/graph"
)

func newTUICommand(opts *rootOptions) *cobra.Command {
	var (
		watch   bool
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "tui [schema.graphql]",
		Short: "Browse the schema graph in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.schemaPath(args)
			if err != nil {
				return err
			}

			// The alternate screen owns the terminal; logs go to a file or nowhere
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "voyager")
				if err != nil {
					return err
				}
				defer f.Close()
				logger, err := debug.NewLogger(f, opts.config.Log.Format, opts.config.Log.Level)
				if err != nil {
					return err
				}
				opts.logger = logger
			} else {
				opts.logger = slog.New(slog.DiscardHandler)
			}
			debug.EnableLogging(opts.logger)

			return runTUI(cmd.Context(), opts, path, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload when the schema file changes")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	return cmd
}

func runTUI(ctx context.Context, opts *rootOptions, path string, watch bool) error {
	g, err := loadGraph(path, &opts.config.Display)
	if err != nil {
		return err
	}

	producer, closeCache, err := opts.newProducer()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ui.Config{
		Context:  ctx,
		Producer: producer,
		Graph:    g,
		Options:  &opts.config.Display,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.Bind(program.Send)

	if watch {
		reload := newSchemaReloader(opts, path, func(g *graph.TypeGraph) {
			program.Send(ui.GraphMsg{Graph: g})
		})
		go func() {
			if err := watchFile(ctx, path, opts.config.Watch.Debounce, reload); err != nil {
				opts.logger.Error("watch stopped", "err", err)
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		return err
	}
	return model.Err()
}
