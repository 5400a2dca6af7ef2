package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	berrors "github.com/bindle-sh/bindle/pkg/errors"
	"github.com/bindle-sh/bindle/pkg/packer"
	"github.com/bindle-sh/bindle/pkg/pipeline"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	root      string
	redisAddr string
	noCache   bool
}

// serveCommand creates the bundle server command. The server exposes the
// pipeline over HTTP so editors and CI can request bundles without
// shelling out.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8473", root: "."}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bundle server",
		Long: `Start an HTTP server exposing the bundling pipeline.

Endpoints:
  GET  /healthz    liveness probe
  POST /v1/bundle  run a build; the request body carries pipeline options

The project root is fixed on the server; requests cannot escape it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.root, "root", opts.root, "project root served to all requests")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "redis address for the shared artifact cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	ctx := cmd.Context()

	if opts.redisAddr == "" {
		opts.redisAddr = os.Getenv("REDIS_ADDR")
	}
	runner, err := c.newRunner(opts.noCache, opts.redisAddr)
	if err != nil {
		return err
	}
	defer runner.Close()

	h := &bundleHandler{runner: runner, root: opts.root, cli: c}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Get("/healthz", h.health)
	r.Post("/v1/bundle", h.bundle)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("bundle server listening", "addr", opts.addr, "root", opts.root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// bundleHandler serves the bundle API backed by a shared runner.
type bundleHandler struct {
	runner *pipeline.Runner
	root   string
	cli    *CLI
}

// bundleRequest is the POST /v1/bundle body. It mirrors the pipeline
// options minus Root, which the server fixes.
type bundleRequest struct {
	Entries      []string          `json:"entries"`
	Mode         string            `json:"mode,omitempty"`
	Extensions   []string          `json:"extensions,omitempty"`
	Aliases      map[string]string `json:"aliases,omitempty"`
	SharedBundle string            `json:"shared_bundle,omitempty"`
	SourceMap    string            `json:"source_map,omitempty"`
	MapRoot      string            `json:"map_root,omitempty"`
	GlobalName   string            `json:"global_name,omitempty"`
	Refresh      bool              `json:"refresh,omitempty"`
}

// bundleResponse is the POST /v1/bundle success body.
type bundleResponse struct {
	BuildID   string                     `json:"build_id"`
	GraphHash string                     `json:"graph_hash"`
	Entries   []string                   `json:"entries"`
	Artifacts map[string]artifactJSON    `json:"artifacts"`
	Stats     pipeline.Stats             `json:"stats"`
	CacheInfo pipeline.CacheInfo         `json:"cache_info"`
}

type artifactJSON struct {
	Code      string `json:"code"`
	SourceMap string `json:"source_map,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (h *bundleHandler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func (h *bundleHandler) bundle(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, berrors.Wrap(berrors.ErrCodeInvalidConfig, err, "decode request"))
		return
	}

	res, err := h.runner.Execute(r.Context(), pipeline.Options{
		Root:         h.root,
		Entries:      req.Entries,
		Mode:         req.Mode,
		Extensions:   req.Extensions,
		Aliases:      req.Aliases,
		SharedBundle: req.SharedBundle,
		SourceMap:    req.SourceMap,
		MapRoot:      req.MapRoot,
		GlobalName:   req.GlobalName,
		Refresh:      req.Refresh,
		Logger:       h.cli.Logger,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := bundleResponse{
		BuildID:   res.BuildID,
		GraphHash: res.GraphHash,
		Entries:   res.Entries,
		Artifacts: make(map[string]artifactJSON, len(res.Artifacts)),
		Stats:     res.Stats,
		CacheInfo: res.CacheInfo,
	}
	for name, art := range res.Artifacts {
		resp.Artifacts[name] = encodeArtifact(art)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func encodeArtifact(art packer.Artifact) artifactJSON {
	return artifactJSON{Code: string(art.Code), SourceMap: string(art.SourceMap)}
}

// statusFor maps pipeline error codes onto HTTP statuses. Build input
// problems are the client's fault; everything else is a 500.
func statusFor(err error) int {
	switch berrors.GetCode(err) {
	case berrors.ErrCodeInvalidEntry, berrors.ErrCodeInvalidConfig, berrors.ErrCodeInvalidOutput:
		return http.StatusBadRequest
	case berrors.ErrCodeModuleNotFound, berrors.ErrCodeResolution:
		return http.StatusUnprocessableEntity
	case berrors.ErrCodeSyntax, berrors.ErrCodeUnboundReference:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: berrors.UserMessage(err),
		Code:  string(berrors.GetCode(err)),
	})
}
