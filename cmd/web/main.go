package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/cart"
	"github.com/noah-isme/storefront-gateway/internal/collection"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/config"
	"github.com/noah-isme/storefront-gateway/internal/console"
	"github.com/noah-isme/storefront-gateway/internal/health"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/pagebuilder"
	"github.com/noah-isme/storefront-gateway/internal/ratelimit"
	"github.com/noah-isme/storefront-gateway/internal/security"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/storage"
	"github.com/noah-isme/storefront-gateway/internal/storefront"
	"github.com/noah-isme/storefront-gateway/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-gateway",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	api := backend.New(cfg.BackendBaseURL, cfg.TenantID, cfg.BackendTimeout, logger)
	cache := collection.NewCache(redisClient, cfg.CollectionCacheTTL)
	carts := cart.NewStore(cfg.CartTTL)
	identities := session.NewStore(redisClient, cfg.SessionTTL)

	cookies := &session.Cookies{
		Manager: session.Manager{
			Secret: []byte(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
		},
		Name:     cfg.SessionCookieName,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
		Logger:   &logger,
	}

	sessionHandler := &session.Handler{
		API:      api,
		Identity: identities,
		Cookies:  cookies,
		Carts:    carts,
		Validate: validate,
		Logger:   &logger,
	}
	cartHandler := &cart.Handler{Carts: carts, Validate: validate}

	consoles := &console.Consoles{
		API:        api,
		Cache:      cache,
		Logger:     logger,
		PerPage:    cfg.DefaultPageSize,
		MaxPerPage: cfg.MaxPageSize,
		Debounce:   cfg.SearchDebounce,
	}
	consoleRouter, err := consoles.Router()
	if err != nil {
		logger.Fatal().Err(err).Msg("build console routes")
	}

	shopHandler := &storefront.Handler{
		API:      api,
		Cache:    cache,
		Carts:    carts,
		Identity: identities,
		Validate: validate,
		Logger:   &logger,
	}
	if cfg.PageBuilderBaseURL != "" && cfg.PageBuilderProjectID != "" {
		shopHandler.Renderer = pagebuilder.New(
			cfg.PageBuilderBaseURL,
			cfg.PageBuilderProjectID,
			cfg.PageBuilderToken,
			cfg.BackendTimeout,
			logger,
		)
	}

	var uploadHandler *storage.Handler
	if cfg.StorageRegion != "" {
		s3Client, err := storage.NewClient(ctx, cfg.StorageRegion)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise object storage")
		}
		uploadHandler = &storage.Handler{
			Uploads: &storage.Uploader{
				Client:        s3Client,
				PublicBaseURL: cfg.StoragePublicBaseURL,
			},
			BucketImages: cfg.StorageBucketImages,
			BucketLogos:  cfg.StorageBucketLogos,
			Logger:       &logger,
		}
	}

	limiter := ratelimit.Limiter{Client: redisClient, Prefix: "rl"}
	onLimitErr := func(err error) {
		logger.Error().Err(err).Msg("rate limit check")
	}
	loginLimit := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.LoginKey,
			Window: envDurationMillis("RATE_LOGIN_WINDOW_MS", 60000),
			Max:    envInt("RATE_LOGIN_MAX", 10),
		},
		OnError: onLimitErr,
	}
	checkoutLimit := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.CheckoutKey,
			Window: envDurationMillis("RATE_CHECKOUT_WINDOW_MS", 60000),
			Max:    envInt("RATE_CHECKOUT_MAX", 5),
		},
		OnError: onLimitErr,
	}
	uploadLimit := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.UploadKey,
			Window: envDurationMillis("RATE_UPLOAD_WINDOW_MS", 60000),
			Max:    envInt("RATE_UPLOAD_MAX", 20),
		},
		OnError: onLimitErr,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{
		Enable:                envBool("SECURE_HEADERS_ENABLE", true),
		EnableHSTS:            envBool("SECURE_HSTS_ENABLE", false),
		HSTSMaxAge:            envInt("SECURE_HSTS_MAX_AGE", 31536000),
		HSTSIncludeSubdomains: envBool("SECURE_HSTS_INCLUDE_SUBDOMAINS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 12<<20))}.Middleware)
	if envBool("SECURE_CSRF_ENABLE", false) {
		r.Use(security.CSRF{Header: envOrDefault("SECURE_CSRF_HEADER", "X-CSRF-Token")}.Middleware)
	}
	r.Use(tenant.Pinned{ID: cfg.TenantID}.Middleware)
	r.Use(cookies.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:        health.Probes{Backend: api, Redis: redisClient},
		BackendTimeout: envDurationMillis("HEALTH_READY_BACKEND_TIMEOUT_MS", 500),
		RedisTimeout:   envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/session", func(s chi.Router) {
			s.With(loginLimit.Middleware).Post("/login/{actor}", sessionHandler.Login)
			s.Get("/me", sessionHandler.Me)
			s.Post("/logout", sessionHandler.Logout)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Post("/items", cartHandler.AddItem)
			c.Patch("/items/{id}", cartHandler.UpdateItem)
			c.Delete("/items/{id}", cartHandler.RemoveItem)
			c.Delete("/", cartHandler.Clear)
		})

		v.Get("/tiendas", shopHandler.Tiendas)
		v.Get("/tiendas/{slug}", shopHandler.Catalogo)
		v.Route("/mi-tienda", func(m chi.Router) {
			m.Get("/", shopHandler.MyStore)
			m.Put("/", shopHandler.SaveStore)
		})
		v.Get("/tienda/{slug}", shopHandler.StorePage)
		v.Get("/categorias", shopHandler.Categorias)
		v.Get("/productos", shopHandler.Productos)
		v.With(checkoutLimit.Middleware, idem.Middleware).Post("/checkout", shopHandler.Checkout)

		if uploadHandler != nil {
			v.Route("/uploads", func(u chi.Router) {
				u.Use(uploadLimit.Middleware)
				u.Post("/productos/{vendedorID}", uploadHandler.ProductImage)
				u.Post("/tiendas/{slug}", uploadHandler.StoreLogo)
			})
		}

		v.Mount("/console", consoleRouter)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		health.SetReady(false)
		grace := envDurationMillis("SHUTDOWN_GRACE_MS", 10000)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
