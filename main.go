package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"apparel-catalog/internal/auth"
	"apparel-catalog/internal/catalog"
	"apparel-catalog/internal/config"
	"apparel-catalog/internal/db"
	"apparel-catalog/internal/featureflags"
	"apparel-catalog/internal/gateway"
	"apparel-catalog/internal/gateway/postgres"
	"apparel-catalog/internal/gateway/supabase"
	mw "apparel-catalog/internal/http/middleware"
	"apparel-catalog/internal/logger"
)

func main() {
	cfg := config.Load()

	// 1) Levelled logger, before anything else logs
	logger.InitWithOptions(cfg.LogLevel, logger.Options{Mode: cfg.LogMode, Filename: cfg.LogFile})
	defer logger.Sync()

	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set")
	}

	// 2) Feature flags init (non-fatal)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := featureflags.Init(ctx, cfg.RolloutKey); err != nil {
		logger.Warnf("feature flags init warning: %v", err)
	}
	defer featureflags.Shutdown()

	// 2a) Watch for remote log level flips
	go func() {
		prev := featureflags.LogLevel(cfg.LogLevel)
		if prev != cfg.LogLevel {
			logger.SetLevel(prev)
		}
		for {
			time.Sleep(5 * time.Second)
			cur := featureflags.LogLevel(cfg.LogLevel)
			if cur != prev {
				logger.SetLevel(cur)
				logger.Infof("log level changed to %s", logger.GetLevel())
				prev = cur
			}
		}
	}()

	// 3) Backend
	sb := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey,
		supabase.WithServiceKey(cfg.SupabaseServiceKey),
		supabase.WithHTTPClient(&http.Client{
			Timeout: cfg.GatewayTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        64,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}),
	)

	var tables gateway.Tables = sb
	if cfg.Tables == "postgres" {
		sqlDB, err := db.Init(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database init failed: %v", err)
		}
		defer sqlDB.Close()
		tables = postgres.NewTables(sqlDB)
	}
	logger.Infof("catalog tables backend: %s", cfg.Tables)

	store := catalog.NewStore(tables, sb, catalog.WithCallTimeout(cfg.GatewayTimeout))
	views := catalog.NewViews(store, cfg.MaxViews, cfg.ViewTTL)
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.LogMode == "production")
	guard := auth.NewGuard(cfg.JWTSecret, sessions)

	catalogHandler := catalog.NewHandler(store, views, catalog.NewInquiry(cfg.WhatsAppNumber), guard)
	authHandler := auth.NewHandler(sb, sessions, guard, func(w http.ResponseWriter, r *http.Request) {
		views.Forget(guard.Key(w, r))
	})

	// 4) Router
	r := mux.NewRouter()

	// 4a) Offline kill-switch middleware
	offlineGate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// always allow health checks
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}
			if featureflags.Offline() {
				http.Error(w, "service temporarily offline", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	r.Use(mw.Recover)
	r.Use(offlineGate)

	// 4b) Request logger (skip noisy health endpoints)
	r.Use(mw.LogRequests(mw.WithSkips("/health", "/ready")))

	// 4c) Admin writes can be frozen remotely
	readOnly := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if featureflags.ReadOnlyAdmin() {
				http.Error(w, "catalog is read-only", http.StatusServiceUnavailable)
				return
			}
			next(w, r)
		}
	}

	// 5) Health endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Warnf("ready: %v", err)
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	// 6) Inspect current flag values
	r.HandleFunc("/_flags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = jsoniter.NewEncoder(w).Encode(featureflags.Snapshot(cfg.LogLevel))
	}).Methods(http.MethodGet)

	// 7) Auth
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/session", authHandler.Session).Methods(http.MethodGet)

	// 8) Storefront (no authentication required)
	r.HandleFunc("/api/catalog/products", catalogHandler.Browse).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/categories", catalogHandler.Categories).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/options", catalogHandler.Options).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/products/{id}/inquiry", catalogHandler.ProductInquiry).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog/inquiry", catalogHandler.BulkInquiry).Methods(http.MethodGet)

	// 9) Admin (session required)
	r.HandleFunc("/api/admin/products", guard.Require(catalogHandler.AdminList)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/products", guard.Require(readOnly(catalogHandler.CreateProduct))).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/products/{id}", guard.Require(readOnly(catalogHandler.UpdateProduct))).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/products/{id}", guard.Require(readOnly(catalogHandler.DeleteProduct))).Methods(http.MethodDelete)
	r.HandleFunc("/api/admin/form", guard.Require(catalogHandler.Draft)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/notification", guard.Require(catalogHandler.Notification)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/notification", guard.Require(catalogHandler.DismissNotification)).Methods(http.MethodDelete)

	s := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("apparel-catalog listening on %s", s.Addr)
	log.Fatal(s.ListenAndServe())
}
