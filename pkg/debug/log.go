// Package debug wires logging for every voyager package.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gogpu/gg"

	"github.com/recera/voyager/pkg/components/graphviewport"
	"github.com/recera/voyager/pkg/graph"
	"github.com/recera/voyager/pkg/scheduler"
	"github.com/recera/voyager/pkg/viewport/raster"
)

// EnableLogging routes the logs of the scheduler, graph, viewport and
// drawing packages to l. Nil silences them again.
func EnableLogging(l *slog.Logger) {
	scheduler.SetLogger(l)
	graph.SetLogger(l)
	graphviewport.SetLogger(l)
	raster.SetLogger(l)
	gg.SetLogger(l)
}

// NewLogger builds a logger writing to w. format is "text" or "json";
// level is one of debug, info, warn, error.
func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
