package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/recera/voyager/internal/cache"
	"github.com/recera/voyager/pkg/graph"
	"github.com/recera/voyager/pkg/vdom"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "watch [schema.graphql]",
		Short: "Re-render the PNG whenever the schema changes",
		Long: `Watches the schema file and redraws the image after every change.
Edits made while a layout is running supersede it; only the latest
schema is written out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.schemaPath(args)
			if err != nil {
				return err
			}
			flags.applyDefaults(opts)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, path, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output PNG (defaults to output.path)")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Image width in pixels")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Image height in pixels")

	return cmd
}

func runWatch(ctx context.Context, opts *rootOptions, path string, flags renderFlags) error {
	producer, closeCache, err := opts.newProducer()
	if err != nil {
		return err
	}
	defer closeCache()

	var (
		v     *rasterView
		saved uint64
	)
	v, err = newRasterView(ctx, opts, producer, flags.width, flags.height, func(*vdom.VNode) {
		p := v.published()
		if !v.comp.Ready() || p.Generation == saved {
			return
		}
		saved = p.Generation
		if err := v.surface.SavePNG(flags.out); err != nil {
			opts.logger.Error("failed to write image", "path", flags.out, "err", err)
			return
		}
		opts.logger.Info("rendered", "path", flags.out, "nodes", len(p.Graph.Nodes), "generation", p.Generation)
	})
	if err != nil {
		return err
	}
	v.start()
	defer v.close()

	reload := newSchemaReloader(opts, path, v.setGraph)
	reload()

	errc := make(chan error, 1)
	go func() {
		errc <- watchFile(ctx, path, opts.config.Watch.Debounce, reload)
	}()

	select {
	case err := <-errc:
		return err
	case err := <-v.faults:
		return err
	case <-ctx.Done():
		return nil
	}
}

// newSchemaReloader returns a func that rebuilds the graph from path and
// hands it to apply. Unchanged file contents and invalid schemas keep the
// current graph.
func newSchemaReloader(opts *rootOptions, path string, apply func(g *graph.TypeGraph)) func() {
	var last string
	return func() {
		key, err := cache.KeyFromFiles(path)
		if err != nil {
			opts.logger.Warn("schema unreadable", "path", path, "err", err)
			return
		}
		if key == last {
			opts.logger.Debug("schema unchanged", "path", path)
			return
		}

		g, err := loadGraph(path, &opts.config.Display)
		if err != nil {
			opts.logger.Error("schema rejected", "path", path, "err", err)
			return
		}
		last = key
		opts.logger.Info("schema loaded", "path", path, "types", len(g.Nodes), "fingerprint", g.Fingerprint)
		apply(g)
	}
}

// watchFile calls onChange, debounced, after path is written, created or
// renamed into place. It watches the directory so editors that replace the
// file keep being followed.
func watchFile(ctx context.Context, path string, debounceFor time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(debounceFor)

		case <-debounce.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}
