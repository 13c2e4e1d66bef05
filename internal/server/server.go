// Package server exposes the rewriting engine over HTTP: one-shot
// rewrites, rule inspection and reload, run history and a live event
// feed. Rule files are recompiled on change; a bad edit keeps the
// previous rule set in service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/config"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/events"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/history"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/logger"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/mapstore"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/ruleio"
)

// Server is the rewriting API server.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	router  *mux.Router
	server  *http.Server
	hub     *events.Hub
	maps    *mapstore.Store // nil unless mapstore.enabled
	history *history.Store  // nil unless history.enabled

	mu      sync.RWMutex
	set     *rule.Set
	rewrite config.RewriteConfig

	limiters *clientLimiters
}

// New creates a server, compiles the configured rule set and connects
// the optional mapping and history stores.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	set, err := loadRuleSet(cfg.Rewrite.RulesPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		router:   mux.NewRouter(),
		hub:      events.NewHub(cfg.WebSocket.AllowedOrigins, log.WithComponent("events").Logger),
		set:      set,
		rewrite:  cfg.Rewrite,
		limiters: newClientLimiters(cfg.RateLimit),
	}

	if cfg.MapStore.Enabled {
		s.maps, err = mapstore.New(&mapstore.Config{
			RedisURL:       cfg.MapStore.RedisURL,
			KeyPrefix:      cfg.MapStore.KeyPrefix,
			TTL:            cfg.MapStore.TTL,
			MaxConnections: cfg.MapStore.MaxConnections,
			MinIdleConns:   cfg.MapStore.MinIdleConns,
		}, log.WithComponent("mapstore").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mapping store: %w", err)
		}
	}

	if cfg.History.Enabled {
		s.history, err = history.NewStore(&history.Config{
			DatabaseURL:     cfg.History.DatabaseURL,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		}, log.WithComponent("history").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	s.logger.Info("Rule set compiled",
		zap.String("rules_path", cfg.Rewrite.RulesPath),
		zap.Int("rule_count", set.Len()))

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.hub.ServeWS).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/rewrite", s.handleRewrite).Methods("POST")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")
	api.HandleFunc("/rules/reload", s.handleReload).Methods("POST")
	api.HandleFunc("/runs", s.handleRuns).Methods("GET")
}

// Start starts the HTTP server and the supporting goroutines.
func (s *Server) Start() error {
	s.logger.Info("Starting rewordapp server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("mapstore", s.maps != nil),
		zap.Bool("history", s.history != nil))

	go s.hub.Run()
	go s.watchRules()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and closes the stores.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping rewordapp server")

	s.hub.Stop()

	if s.maps != nil {
		if err := s.maps.Close(); err != nil {
			s.logger.Warn("Failed to close mapping store", zap.Error(err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close history store", zap.Error(err))
		}
	}

	return s.server.Shutdown(ctx)
}

// ruleSet returns the current compiled rule set.
func (s *Server) ruleSet() *rule.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// rewriteDefaults returns the current rewrite defaults.
func (s *Server) rewriteDefaults() config.RewriteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewrite
}

// ApplyRewriteDefaults swaps the rewrite defaults (seed, header, input
// size bound) for subsequent runs. Called when the configuration file
// changes; server and store settings still need a restart.
func (s *Server) ApplyRewriteDefaults(rw config.RewriteConfig) {
	s.mu.Lock()
	s.rewrite = rw
	s.mu.Unlock()

	s.logger.Info("Rewrite defaults updated",
		zap.Int64("seed", rw.Seed),
		zap.Int64("max_text_bytes", rw.MaxTextBytes))
}

// reloadRules recompiles the rule file. The swap is all-or-nothing: a
// broken file leaves the previous set in service.
func (s *Server) reloadRules() error {
	set, err := loadRuleSet(s.config.Rewrite.RulesPath)
	if err != nil {
		s.logger.Error("Rule reload failed", zap.Error(err))
		s.hub.Broadcast(events.Event{
			Type: events.EventTypeRulesReloaded,
			Data: events.RulesReloadedEvent{Error: err.Error()},
		})
		return err
	}

	s.mu.Lock()
	s.set = set
	s.mu.Unlock()

	s.logger.Info("Rule set reloaded", zap.Int("rule_count", set.Len()))
	s.hub.Broadcast(events.Event{
		Type: events.EventTypeRulesReloaded,
		Data: events.RulesReloadedEvent{RuleCount: set.Len()},
	})
	return nil
}

// watchRules recompiles the rule set whenever the rule file changes.
func (s *Server) watchRules() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("Failed to create rules watcher", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Watch the directory: editors typically replace the file, which
	// would orphan a watch on the path itself.
	dir := filepath.Dir(s.config.Rewrite.RulesPath)
	if err := watcher.Add(dir); err != nil {
		s.logger.Error("Failed to watch rules directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	target := filepath.Clean(s.config.Rewrite.RulesPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reloadRules() //nolint:errcheck // reload failures are logged and broadcast

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Rules watcher error", zap.Error(err))
		}
	}
}

func loadRuleSet(path string) (*rule.Set, error) {
	defs, err := ruleio.Load(path)
	if err != nil {
		return nil, err
	}
	set, err := rule.Compile(defs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	return set, nil
}
