package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mlxd/internal/config"
	"mlxd/internal/httpapi"
	"mlxd/internal/manager"
	"mlxd/internal/registry"
	"mlxd/internal/runtime"
)

func main() {
	cmd, _ := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// envDefault returns the environment value when set, else fallback.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type options struct {
	configPath   string
	addr         string
	socket       string
	modelsDir    string
	maxModels    int
	defaultModel string
	preload      []string
	logLevel     string
	corsEnabled  bool
	corsOrigins  []string
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "mlxd",
		Short:         "OpenAI-compatible chat-completion server with an LRU model cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.socket != "" && cmd.Flags().Changed("addr") {
				return errors.New("--addr and --socket are mutually exclusive")
			}
			return run(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", os.Getenv("MLXD_CONFIG"), "Path to config file (yaml/json/toml)")
	f.StringVar(&opts.addr, "addr", envDefault("MLXD_ADDR", "127.0.0.1:11435"), "TCP listen address, e.g. 127.0.0.1:11435")
	f.StringVar(&opts.socket, "socket", os.Getenv("MLXD_SOCKET"), "Unix socket path (mutually exclusive with --addr)")
	f.StringVar(&opts.modelsDir, "models-dir", envDefault("MLXD_MODELS_DIR", "~/models/mlx"), "Directory to scan for models")
	f.IntVar(&opts.maxModels, "max-models", 3, "Maximum number of models held resident")
	f.StringVar(&opts.defaultModel, "default-model", "", "Default model id when a request omits model")
	f.StringSliceVar(&opts.preload, "preload", nil, "Models to load at startup (comma separated)")
	f.StringVar(&opts.logLevel, "log-level", envDefault("MLXD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	f.BoolVar(&opts.corsEnabled, "cors", false, "Enable CORS")
	f.StringSliceVar(&opts.corsOrigins, "cors-origin", nil, "Allowed CORS origins (default: all)")
	return cmd, opts
}

// mergeConfig overlays file values under explicitly set flags:
// flag > file > env/flag default.
func mergeConfig(cmd *cobra.Command, opts *options) error {
	if opts.configPath == "" {
		return nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	f := cmd.Flags()
	if cfg.Addr != "" && !f.Changed("addr") {
		opts.addr = cfg.Addr
	}
	if cfg.Socket != "" && !f.Changed("socket") {
		opts.socket = cfg.Socket
	}
	if cfg.ModelsDir != "" && !f.Changed("models-dir") {
		opts.modelsDir = cfg.ModelsDir
	}
	if cfg.MaxModels > 0 && !f.Changed("max-models") {
		opts.maxModels = cfg.MaxModels
	}
	if cfg.DefaultModel != "" && !f.Changed("default-model") {
		opts.defaultModel = cfg.DefaultModel
	}
	if len(cfg.Preload) > 0 && !f.Changed("preload") {
		opts.preload = cfg.Preload
	}
	if cfg.LogLevel != "" && !f.Changed("log-level") {
		opts.logLevel = cfg.LogLevel
	}
	if cfg.CORSEnabled && !f.Changed("cors") {
		opts.corsEnabled = true
	}
	if len(cfg.CORSOrigins) > 0 && !f.Changed("cors-origin") {
		opts.corsOrigins = cfg.CORSOrigins
	}
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	return nil
}

func run(cmd *cobra.Command, opts *options) error {
	if err := mergeConfig(cmd, opts); err != nil {
		return err
	}

	lvl, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	reg, err := registry.LoadDir(opts.modelsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", opts.modelsDir).Msg("models dir not scanned")
	}
	log.Info().Int("models", len(reg)).Str("dir", opts.modelsDir).Msg("registry loaded")

	// The model runtime is injected here; the default build ships the
	// fail-fast stub and serves 503 until a real backend is wired in.
	rt := runtime.NewUnavailable()
	mgr := manager.NewWithConfig(manager.Config{
		Loader:       rt,
		Generator:    rt,
		Registry:     reg,
		MaxModels:    opts.maxModels,
		DefaultModel: opts.defaultModel,
		Events:       manager.NewLogPublisher(log),
	})
	defer mgr.Close()

	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A preload failure is the one unrecoverable startup error.
	for _, id := range opts.preload {
		_, release, err := mgr.Acquire(baseCtx, id)
		if err != nil {
			return fmt.Errorf("preload %s: %w", id, err)
		}
		release()
		log.Info().Str("model", id).Msg("preloaded")
	}

	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(opts.corsEnabled, opts.corsOrigins)
	httpapi.SetBaseContext(baseCtx)
	mux := httpapi.NewMux(mgr)

	ln, cleanup, err := listen(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(baseCtx)
	g.Go(func() error {
		log.Info().Str("listen", ln.Addr().String()).Msg("mlxd listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown")
		}
		return nil
	})
	return g.Wait()
}

// listen binds either the TCP address or the unix socket, removing a stale
// socket file left by a previous run.
func listen(opts *options) (net.Listener, func(), error) {
	if opts.socket != "" {
		if err := os.Remove(opts.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("remove stale socket: %w", err)
		}
		ln, err := net.Listen("unix", opts.socket)
		if err != nil {
			return nil, nil, err
		}
		sock := opts.socket
		return ln, func() { _ = os.Remove(sock) }, nil
	}
	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return nil, nil, err
	}
	return ln, func() {}, nil
}
