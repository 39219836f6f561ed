// Command domlens is the page perception service: it renders browser pages
// as indexed text snapshots with incremental diffs, or as markdown.
//
// Usage:
//
//	domlens -url https://example.com              # one-shot snapshot to stdout
//	domlens -config domlens.yaml -serve :8090     # HTTP service
//	domlens -config domlens.yaml -mcp             # MCP server on stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domlens/connectivity"
	"github.com/hazyhaar/domlens/idgen"
	"github.com/hazyhaar/domlens/rodom"
	"github.com/hazyhaar/domlens/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to domlens.yaml config file")
	singleURL := flag.String("url", "", "snapshot a single URL and exit")
	serveAddr := flag.String("serve", "", "HTTP listen address (e.g. :8090)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools on stdio")
	routesDB := flag.String("routes-db", "", "path to connectivity routes database (optional)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *singleURL, *serveAddr, *routesDB, *mcpStdio); err != nil {
		logger.Error("domlens: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, singleURL, serveAddr, routesDB string, mcpStdio bool) error {
	cfg := &snapshot.Config{}
	if configPath != "" {
		loaded, err := snapshot.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	mgr := rodom.NewManager(rodom.ManagerConfig{
		Remote: cfg.Browser.Remote,
		Logger: logger,
	})
	if _, err := mgr.Start(); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	sessions := rodom.NewSessions(mgr, rodom.SessionConfig{
		NavTimeout:       cfg.Browser.NavTimeout,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	defer sessions.Close()

	eng, err := snapshot.New(sessions, cfg, logger)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if singleURL != "" {
		return runSingle(ctx, eng, singleURL)
	}

	if mcpStdio {
		return runMCP(ctx, eng)
	}

	if serveAddr != "" {
		return runServe(ctx, logger, eng, serveAddr, routesDB)
	}

	fmt.Fprintln(os.Stderr, "usage: domlens -url <url> | -serve <addr> | -mcp")
	os.Exit(1)
	return nil
}

func runSingle(ctx context.Context, eng *snapshot.Engine, url string) error {
	sessionID := idgen.Prefixed("sess_", idgen.Default)()
	if err := eng.OpenSession(ctx, sessionID, url); err != nil {
		return err
	}
	defer eng.EndSession(ctx, sessionID)

	res, err := eng.Compute(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Println(res.Text)
	return nil
}

func runMCP(ctx context.Context, eng *snapshot.Engine) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "domlens",
		Version: "1.0.0",
	}, nil)
	eng.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runServe(ctx context.Context, logger *slog.Logger, eng *snapshot.Engine, addr, routesDB string) error {
	router := connectivity.New(connectivity.WithLogger(logger))
	defer router.Close()
	eng.RegisterConnectivity(router)

	if routesDB != "" {
		db, err := connectivity.OpenDB(routesDB)
		if err != nil {
			return fmt.Errorf("open routes db: %w", err)
		}
		defer db.Close()

		admin := connectivity.NewAdmin(db)
		err = admin.SeedLocal(ctx,
			"domlens_snapshot", "domlens_markdown", "domlens_end_session", "domlens_stats")
		if err != nil {
			return fmt.Errorf("seed routes: %w", err)
		}

		router.RegisterTransport("http", connectivity.HTTPFactory())
		go router.Watch(ctx, db, 200*time.Millisecond)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/v1/routes", func(w http.ResponseWriter, _ *http.Request) {
		var services []connectivity.ServiceInfo
		for info := range router.ListServices() {
			services = append(services, info)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(services)
	})
	eng.RegisterHTTP(r)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("domlens: http listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}
