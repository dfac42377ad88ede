package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/vdom"
)

type renderFlags struct {
	out    string
	width  int
	height int
	node   string
	edge   string
	focus  string
}

func newRenderCommand(opts *rootOptions) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [schema.graphql]",
		Short: "Render the schema graph to a PNG",
		Long:  `Lays out the schema once, draws it offscreen and writes the image.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.schemaPath(args)
			if err != nil {
				return err
			}
			flags.applyDefaults(opts)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := runRender(ctx, opts, path, flags); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flags.out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output PNG (defaults to output.path)")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Image width in pixels")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Image height in pixels")
	cmd.Flags().StringVar(&flags.node, "select", "", "Type to highlight, e.g. TYPE::User")
	cmd.Flags().StringVar(&flags.edge, "select-edge", "", "Field edge to highlight")
	cmd.Flags().StringVar(&flags.focus, "focus", "", "Element to center at full scale")

	return cmd
}

func (f *renderFlags) applyDefaults(opts *rootOptions) {
	if f.out == "" {
		f.out = opts.config.Output.Path
	}
	if f.width <= 0 {
		f.width = opts.config.Output.Width
	}
	if f.height <= 0 {
		f.height = opts.config.Output.Height
	}
}

func runRender(ctx context.Context, opts *rootOptions, path string, flags renderFlags) error {
	g, err := loadGraph(path, &opts.config.Display)
	if err != nil {
		return err
	}

	producer, closeCache, err := opts.newProducer()
	if err != nil {
		return err
	}
	defer closeCache()

	done := make(chan error, 1)
	var v *rasterView
	v, err = newRasterView(ctx, opts, producer, flags.width, flags.height, func(*vdom.VNode) {
		if !v.comp.Ready() {
			return
		}
		if flags.focus != "" {
			v.comp.FocusNode(flags.focus)
		}
		select {
		case done <- v.surface.SavePNG(flags.out):
		default:
		}
	})
	if err != nil {
		return err
	}
	v.start()
	defer v.close()

	v.update(func(p *graphviewport.Props) {
		p.Graph = g
		p.SelectedNodeID = flags.node
		p.SelectedEdgeID = flags.edge
	})

	select {
	case err := <-done:
		return err
	case err := <-v.faults:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
