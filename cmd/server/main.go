package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"arenacraft.gg/internal/chain"
	"arenacraft.gg/internal/persistence/history"
	persistlog "arenacraft.gg/internal/persistence/log"
	"arenacraft.gg/internal/sim/multiarena"
	"arenacraft.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/arenas.yaml", "arenas config path")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable round history persistence")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfgPath := strings.TrimSpace(*configPath)
	if cfgPath != "" {
		if _, err := os.Stat(cfgPath); err != nil {
			logger.Printf("config %s not found; using defaults", cfgPath)
			cfgPath = ""
		}
	}
	cfg, err := multiarena.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	deps := multiarena.Deps{Chain: &chain.Noop{}}

	var hist *history.Store
	if !*disableDB {
		hist, err = history.Open(filepath.Join(*dataDir, "history.db"))
		if err != nil {
			logger.Fatalf("open history db: %v", err)
		}
		defer hist.Close()
		deps.History = hist
	}

	evLog := persistlog.NewEventLogger(*dataDir)
	defer evLog.Close()
	deps.EventLog = evLog

	mgr, err := multiarena.NewManager(cfg, deps, logger)
	if err != nil {
		logger.Fatalf("new manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	logger.Printf("arenas running: %v", mgr.ArenaIDs())

	wsServer := ws.NewServer(mgr, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/arenas", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, mgr.Statuses())
	})
	r.Get("/v1/arenas/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		rt := mgr.Runtime(chi.URLParam(req, "id"))
		if rt == nil {
			http.Error(w, "arena not found", http.StatusNotFound)
			return
		}
		writeJSON(w, rt.Arena.Status())
	})
	r.Get("/v1/arenas/{id}/history", func(w http.ResponseWriter, req *http.Request) {
		if hist == nil {
			http.Error(w, "history disabled", http.StatusNotFound)
			return
		}
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		recs, err := hist.RecentRounds(chi.URLParam(req, "id"), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, recs)
	})
	r.Get("/v1/ws", wsServer.Handler())

	srv := &http.Server{Addr: *addr, Handler: r}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	mgr.Shutdown()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
