package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"github.com/yumovie/backend/internal/admin"
	"github.com/yumovie/backend/internal/auth"
	"github.com/yumovie/backend/internal/catalog"
	"github.com/yumovie/backend/internal/config"
	"github.com/yumovie/backend/internal/health"
	"github.com/yumovie/backend/internal/middleware"
	"github.com/yumovie/backend/internal/review"
	"github.com/yumovie/backend/internal/sharedlist"
	"github.com/yumovie/backend/internal/store"
	"github.com/yumovie/backend/internal/users"
	"github.com/yumovie/backend/internal/watchlist"
	"github.com/yumovie/backend/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment may be set by the container.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFile)
	ctx := context.Background()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if cfg.TMDBAPIKey == "" {
		log.Warn("TMDB_API_KEY is not set; catalog endpoints will fail")
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database(cfg.MongoDB)
	if err := store.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	listStore := store.NewSharedListStore(mongoDB)
	itemStore := store.NewWatchlistStore(mongoDB)
	reviewStore := store.NewReviewStore(mongoDB)

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	posterCache, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Metrics ──────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	// ── Services ─────────────────────────────────────────────
	authSvc := auth.NewService(pgStore, sessions, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), log.WithField("component", "auth"))
	tmdb := catalog.NewClient(catalog.Options{
		APIKey:   cfg.TMDBAPIKey,
		BaseURL:  cfg.TMDBBaseURL,
		RPS:      cfg.TMDBRPS,
		Registry: reg,
	}, log.WithField("component", "tmdb"))
	posters := catalog.NewPosters(cfg.TMDBImageURL, posterCache, nil, log.WithField("component", "posters"))

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(authSvc, log)
	userHandler := users.NewHandler(users.NewService(pgStore, log), log)
	watchlistHandler := watchlist.NewHandler(watchlist.NewService(itemStore, log), log)
	reviewHandler := review.NewHandler(review.NewService(reviewStore, pgStore, log), log)
	sharedHandler := sharedlist.NewHandler(sharedlist.NewService(listStore, pgStore, log.WithField("component", "sharedlist")), log)
	adminHandler := admin.NewHandler(admin.NewService(pgStore, reviewStore, log.WithField("component", "admin")), log)
	catalogHandler := catalog.NewHandler(tmdb, posters, log)
	healthHandler := health.NewHandler(
		map[string]health.Pinger{
			"mongo":    store.NewMongoPinger(mongoClient),
			"postgres": pgStore,
			"redis":    store.NewRedisPinger(rdb),
		},
		map[string]bool{
			"MONGO_URI":    cfg.MongoURI != "",
			"JWT_SECRET":   cfg.JWTSecret != "",
			"TMDB_API_KEY": cfg.TMDBAPIKey != "",
		},
		log,
	)

	requireAuth := middleware.RequireAuth(authSvc, log)

	// ── Router ───────────────────────────────────────────────
	chimw.DefaultLogger = chimw.RequestLogger(&chimw.DefaultLogFormatter{Logger: log, NoColor: true})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.TokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API is running..."))
	})
	r.Method(http.MethodGet, "/health", healthHandler)
	r.Method(http.MethodGet, "/api/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Auth routes (public, rate limited)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.NewLimiter(rate.Limit(cfg.AuthRPS), cfg.AuthBurst)))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireAuth)
		userHandler.Routes(r)
	})
	r.Route("/api/watchlist", func(r chi.Router) {
		r.Use(requireAuth)
		watchlistHandler.Routes(r)
	})
	r.Route("/api/reviews", func(r chi.Router) {
		reviewHandler.Routes(r, requireAuth)
	})
	r.Route("/api/shared-watchlists", func(r chi.Router) {
		r.Use(requireAuth)
		sharedHandler.Routes(r)
	})
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireAdmin)
		adminHandler.Routes(r)
	})
	r.Route("/api/movies", func(r chi.Router) {
		r.Use(requireAuth)
		catalogHandler.MovieRoutes(r)
	})
	r.Route("/api/images", catalogHandler.ImageRoutes)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
