package main

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/voyager/pkg/live"
	"github.com/recera/voyager/pkg/renderer/html"
	"github.com/recera/voyager/pkg/vdom"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		host  string
		port  int
		watch bool
		flags renderFlags
	)

	cmd := &cobra.Command{
		Use:   "serve [schema.graphql]",
		Short: "Serve the schema graph in the browser",
		Long: `Starts an HTTP server showing the rendered graph. Clicking the image
selects types and fields; every open page follows the selection live.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.schemaPath(args)
			if err != nil {
				return err
			}
			flags.applyDefaults(opts)
			if host != "" {
				opts.config.Serve.Host = host
			}
			if port != 0 {
				opts.config.Serve.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, path, flags, watch)
		},
	}

	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (defaults to serve.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (defaults to serve.port)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload when the schema file changes")
	cmd.Flags().IntVar(&flags.width, "width", 0, "Image width in pixels")
	cmd.Flags().IntVar(&flags.height, "height", 0, "Image height in pixels")

	return cmd
}

// viewerServer serves one rasterView over HTTP
type viewerServer struct {
	opts *rootOptions
	view *rasterView
	live *live.Server

	// Bumped per broadcast so pages refetch the image
	frame uint64

	mu   sync.RWMutex
	body string
}

func runServe(ctx context.Context, opts *rootOptions, path string, flags renderFlags, watch bool) error {
	producer, closeCache, err := opts.newProducer()
	if err != nil {
		return err
	}
	defer closeCache()

	s := &viewerServer{opts: opts}
	s.live = live.NewServer(
		live.WithLogger(opts.logger.With("component", "live")),
		live.WithEventHandler(s.handleEvent),
	)
	defer s.live.Close()

	s.view, err = newRasterView(ctx, opts, producer, flags.width, flags.height, s.commit)
	if err != nil {
		return err
	}
	s.view.start()
	defer s.view.close()

	reload := newSchemaReloader(opts, path, s.view.setGraph)
	reload()

	errc := make(chan error, 2)
	if watch {
		go func() {
			errc <- watchFile(ctx, path, opts.config.Watch.Debounce, reload)
		}()
	}

	srv := &http.Server{
		Addr:              opts.config.Serve.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		opts.logger.Info("viewer running", "url", "http://"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err = <-errc:
	case err = <-s.view.faults:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		opts.logger.Warn("shutdown", "err", serr)
	}
	return err
}

func (s *viewerServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.servePage)
	mux.HandleFunc("/image.png", s.serveImage)
	mux.HandleFunc("/live/", s.live.HandleWebSocket)
	return mux
}

// commit runs on the loop after the component rendered
func (s *viewerServer) commit(node *vdom.VNode) {
	body, err := html.RenderToString(node)
	if err != nil {
		s.opts.logger.Error("failed to render page", "err", err)
		return
	}
	s.mu.Lock()
	s.body = body
	s.mu.Unlock()

	s.broadcast()
}

// broadcast pushes the view state to every page. Loop goroutine only.
func (s *viewerServer) broadcast() {
	state := live.State{
		Ready:  s.view.comp.Ready(),
		NodeID: s.view.props.SelectedNodeID,
		EdgeID: s.view.props.SelectedEdgeID,
	}
	if p := s.view.published(); p != nil {
		state.Generation = p.Generation
		s.frame++
		state.Image = "/image.png?" + url.Values{"f": {strconv.FormatUint(s.frame, 10)}}.Encode()
	}
	s.live.Broadcast(state)
}

// handleEvent runs on a session's read goroutine
func (s *viewerServer) handleEvent(e live.Event) {
	s.view.loop.Post(func() {
		switch e.Type {
		case live.MessageSelectNode:
			s.view.selectNode(e.ID)
		case live.MessageSelectEdge:
			s.view.selectEdge(e.ID)
		case live.MessageFocus:
			s.view.comp.FocusNode(e.ID)
		case live.MessageClick:
			s.view.comp.Click(e.X, e.Y)
		}
		s.broadcast()
	})
}

func (s *viewerServer) serveImage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.view.surface.EncodePNG(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (s *viewerServer) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	body := s.body
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := pageTemplate.Execute(w, template.HTML(body)); err != nil {
		s.opts.logger.Warn("failed to write page", "err", err)
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Voyager</title>
<style>
body { margin: 0; font-family: sans-serif; background: #f8fafc; }
.viewport { position: relative; }
.viewport img { display: block; max-width: 100%; cursor: pointer; }
.loading-box { display: flex; flex-direction: column; align-items: center; padding: 4rem; color: #64748b; }
.spinner { animation: spin 1s linear infinite; }
@keyframes spin { to { transform: rotate(360deg); } }
#status { position: fixed; bottom: 0; left: 0; padding: .25rem .5rem; font-size: 12px; color: #475569; }
</style>
</head>
<body>
<div id="root">{{.}}</div>
<div id="status"></div>
<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/live/");
  var root = document.getElementById("root");
  var status = document.getElementById("status");
  var img = null;

  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type !== "state") return;
    var st = msg.state;
    status.textContent = (st.nodeId || "") + (st.edgeId ? " / " + st.edgeId : "");
    if (!st.ready) {
      if (img) location.reload();
      return;
    }
    if (!img) {
      root.innerHTML = "";
      var box = document.createElement("div");
      box.className = "viewport";
      img = document.createElement("img");
      img.onclick = function (e) {
        var r = img.getBoundingClientRect();
        var sx = img.naturalWidth / r.width, sy = img.naturalHeight / r.height;
        ws.send(JSON.stringify({ type: "click", x: (e.clientX - r.left) * sx, y: (e.clientY - r.top) * sy }));
      };
      box.appendChild(img);
      root.appendChild(box);
    }
    img.src = st.image;
  };
})();
</script>
</body>
</html>
`))
