package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inferd/internal/binaries"
	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/registry"
	"inferd/internal/supervisor"
	"inferd/internal/tuning"
)

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		corsOrigins string
	)
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the supervisor daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				fileCfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = mergeConfig(fileCfg, cfg, cmd)
			}
			applyDefaults(&cfg)
			return runServe(cmd, cfg, corsOrigins)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Config file (.yaml, .json or .toml); flags override it")
	f.StringVar(&cfg.Addr, "addr", "", "HTTP listen address (default 127.0.0.1:8090)")
	f.StringVar(&cfg.ModelsDir, "models-dir", "", "Directory to scan for *.gguf model files (default ~/models/llm)")
	f.StringVar(&cfg.ResourcesDir, "resources-dir", "", "Bundled server binaries directory")
	f.StringVar(&cfg.DevBinDir, "dev-bin-dir", "", "Development fallback binaries directory")
	f.IntVar(&cfg.PortRangeFrom, "port-from", 0, "First loopback port to probe (default 8600)")
	f.IntVar(&cfg.PortRangeTo, "port-to", 0, "Last loopback port to probe (default 8699)")
	f.IntVar(&cfg.CtxSize, "ctx-size", 0, "Context window size (default 4096)")
	f.IntVar(&cfg.Threads, "threads", 0, "Thread count override (0 = advisor)")
	f.IntVar(&cfg.GPULayers, "gpu-layers", 0, "GPU layer override (0 = advisor)")
	f.Float64Var(&cfg.Temperature, "temperature", 0, "Default sampling temperature (default 0.2)")
	f.IntVar(&cfg.MaxTokens, "max-tokens", 0, "Default completion token limit (default 1024)")
	f.BoolVar(&cfg.Embedded, "embedded", false, "Use the in-process runtime instead of a server binary")
	f.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated CORS origins (empty disables CORS)")
	return cmd
}

// mergeConfig overlays explicitly-set flags on top of the config file.
func mergeConfig(file, flags config.Config, cmd *cobra.Command) config.Config {
	out := file
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("addr") {
		out.Addr = flags.Addr
	}
	if set("models-dir") {
		out.ModelsDir = flags.ModelsDir
	}
	if set("resources-dir") {
		out.ResourcesDir = flags.ResourcesDir
	}
	if set("dev-bin-dir") {
		out.DevBinDir = flags.DevBinDir
	}
	if set("port-from") {
		out.PortRangeFrom = flags.PortRangeFrom
	}
	if set("port-to") {
		out.PortRangeTo = flags.PortRangeTo
	}
	if set("ctx-size") {
		out.CtxSize = flags.CtxSize
	}
	if set("threads") {
		out.Threads = flags.Threads
	}
	if set("gpu-layers") {
		out.GPULayers = flags.GPULayers
	}
	if set("temperature") {
		out.Temperature = flags.Temperature
	}
	if set("max-tokens") {
		out.MaxTokens = flags.MaxTokens
	}
	if set("embedded") {
		out.Embedded = flags.Embedded
	}
	return out
}

func applyDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8090"
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/models/llm"
	}
}

func runServe(cmd *cobra.Command, cfg config.Config, corsOrigins string) error {
	log := newLogger(cmd, cfg.LogLevel)

	// Signal-driven lifetime; a second signal kills the process the hard way.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	models, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		// Missing models dir is not fatal; the registry can be rescanned
		// once the user downloads a model.
		log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("model scan failed, starting with empty registry")
		models = nil
	}
	log.Info().Int("models", len(models)).Str("dir", cfg.ModelsDir).Msg("model registry loaded")

	sup := supervisor.New(supervisor.Config{
		Locator:     binaries.NewLocator(cfg.ResourcesDir, cfg.DevBinDir),
		Advisor:     tuning.NewAdvisor(cfg.Threads, cfg.GPULayers),
		PortFrom:    cfg.PortRangeFrom,
		PortTo:      cfg.PortRangeTo,
		CtxSize:     cfg.CtxSize,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Embedded:    cfg.Embedded,
		Logger:      log,
	})
	mgr := manager.New(models, cfg.ModelsDir, sup, log)
	defer mgr.Close()

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	if origins := splitCSV(corsOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Content-Type", "X-Log-Level"})
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
