package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/brinklayer/membrane"
	"github.com/brinklayer/membrane/internal/auth"
	"github.com/brinklayer/membrane/internal/config"
	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/distortions"
	"github.com/brinklayer/membrane/internal/logging"
	"github.com/brinklayer/membrane/internal/observability"
)

// adminToken gates the runtime POST /graphs endpoint; it starts out equal to
// the -admin-token flag and may be replaced by an override file's
// admin_token field (see applyOverride in config.go).
var adminToken string

func main() {
	var (
		configPath   = flag.String("config", "", "path to a MembraneConfig TOML file")
		overridePath = flag.String("override", "", "optional TOML override layered on top of -config")
		initKind     = flag.String("init", "", "write a starter config (demo|minimal) to -config and exit")
	)
	flag.StringVar(&adminToken, "admin-token", "", "shared secret required to register new graphs at runtime")
	flag.Parse()

	logging.ConfigureRuntime()
	zl := observability.InitLogger("membranedemo")

	if *initKind != "" {
		if *configPath == "" {
			fmt.Fprintln(os.Stderr, "membranedemo: -init requires -config")
			os.Exit(1)
		}
		if err := config.WriteTemplate(*configPath, *initKind, false); err != nil {
			fmt.Fprintf(os.Stderr, "membranedemo: %v\n", err)
			os.Exit(1)
		}
		zl.Info().Str("kind", *initKind).Str("path", *configPath).Msg("wrote config template")
		return
	}

	cfg := config.MembraneConfig{Name: "membrane-demo", Addr: ":9000"}
	var err error
	if *configPath != "" {
		cfg, err = config.LoadMembraneConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "membranedemo: %v\n", err)
			os.Exit(1)
		}
	}
	cfg, err = applyOverride(cfg, *overridePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "membranedemo: %v\n", err)
		os.Exit(1)
	}

	app, err := newMembraneApp(cfg, zl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "membranedemo: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, cfg, zl); err != nil {
		zl.Error().Err(err).Msg("membranedemo exited with error")
		os.Exit(1)
	}
}

// membraneApp bundles the membrane facade with the demo values registered
// against it, so the HTTP handlers in server.go have something to mediate.
type membraneApp struct {
	m       *membrane.Membrane
	wet     cylinder.GraphName
	dry     cylinder.GraphName
	record  *DemoRecord
	greeter *DemoGreeter
}

// newMembraneApp constructs the membrane, admits the configured graphs, and
// wires the config's distortion rules into the catalog (SPEC_FULL.md §6).
func newMembraneApp(cfg config.MembraneConfig, zl zerolog.Logger) (*membraneApp, error) {
	graphs := cfg.Graphs
	if len(graphs) == 0 {
		graphs = []config.GraphConfig{{Name: "wet"}, {Name: "dry"}}
	}

	tokens := auth.GraphTokens{}
	for _, g := range graphs {
		if g.Auth != "" {
			tokens[g.Name] = g.Auth
		}
	}
	var admission auth.Validator
	if len(tokens) > 0 {
		admission = tokens
	} else if adminToken != "" {
		admission = auth.StaticToken{Token: adminToken}
	}

	m := membrane.New(membrane.Options{
		ShowGraphName:  cfg.ShowGraphName,
		Logger:         &zl,
		GraphAdmission: admission,
	})

	for _, g := range graphs {
		token := g.Auth
		if len(tokens) == 0 {
			token = adminToken
		}
		if err := m.RegisterGraph(cylinder.GraphName(g.Name), token); err != nil {
			return nil, fmt.Errorf("bootstrap graph %q: %w", g.Name, err)
		}
	}

	app := &membraneApp{
		m:       m,
		wet:     cylinder.GraphName(graphs[0].Name),
		dry:     cylinder.GraphName(graphs[len(graphs)-1].Name),
		record:  NewDemoRecord(map[string]any{"id": int64(1), "label": "origin-record"}),
		greeter: NewDemoGreeter(),
	}

	registerDemoDistortions(m, cfg, zl)
	return app, nil
}

// registerDemoDistortions maps each config-declared DistortionRule onto the
// two registered demo value types by name (SPEC_FULL.md §6): the catalog
// itself is type-agnostic, but a TOML file cannot carry a reflect.Type, so
// the demo resolves type_name against a small local registry before
// installing the rule.
func registerDemoDistortions(m *membrane.Membrane, cfg config.MembraneConfig, zl zerolog.Logger) {
	typeRegistry := map[string]reflect.Type{
		"DemoRecord":  reflect.TypeOf(&DemoRecord{}),
		"DemoGreeter": reflect.TypeOf(&DemoGreeter{}),
	}
	for _, entry := range config.ToCatalogEntries(cfg.Distortions) {
		t, ok := typeRegistry[entry.TypeName]
		if !ok {
			zl.Warn().Str("type_name", entry.TypeName).Msg("no demo type registered for distortion")
			continue
		}
		m.Catalog().AddListener(distortions.CategoryInstance, t, entry.Config)
	}
}

func (a *membraneApp) graphNames() []string {
	return []string{string(a.wet), string(a.dry)}
}

// run starts the admin/introspection HTTP server and blocks until ctx is
// canceled, then drains in-flight requests before returning (the gin
// analogue of edgectl's listener-close-on-ctx.Done pattern).
func (a *membraneApp) run(ctx context.Context, cfg config.MembraneConfig, zl zerolog.Logger) error {
	router := newRouter(a, zl, cfg.CorsOrigins)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info().Str("addr", cfg.Addr).Msg("membranedemo listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		zl.Info().Msg("membranedemo shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-serveErr:
		return err
	}
}
