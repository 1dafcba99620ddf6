package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"shop-api/internal/auth"
	"shop-api/internal/category"
	"shop-api/internal/comment"
	"shop-api/internal/coupon"
	"shop-api/internal/db"
	"shop-api/internal/event"
	"shop-api/internal/observability"
	"shop-api/internal/order"
	"shop-api/internal/product"
	"shop-api/internal/user"
)

const apiPrefix = "/api/v1"

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	encodedSecret, err := mustEnv("JWT_SECRET_B64")
	if err != nil {
		return nil, err
	}
	signingKey, err := auth.SigningKeyFromBase64(encodedSecret)
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(
		os.Getenv("SENTRY_DSN"),
		envOrDefault("APP_ENV", "development"),
		os.Getenv("APP_RELEASE"),
	); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	ctx := context.Background()
	database, err := db.Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	database.SetMaxOpenConns(envIntOrDefault("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(envIntOrDefault("DB_MAX_IDLE_CONNS", 5))
	database.SetConnMaxLifetime(envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30))
	database.SetConnMaxIdleTime(envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10))

	if options.RunMigrations {
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	accessTTL := envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 30)
	refreshTTL := envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168)
	codec := auth.NewCodec(signingKey, accessTTL, refreshTTL)

	hasher := auth.BcryptHasher{}
	userRepo := user.NewRepository(database, hasher)
	tokenStore := auth.NewPostgresTokenStore(database, accessTTL, refreshTTL)
	authService := auth.NewService(userRepo, hasher, codec, tokenStore)
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userRepo)

	bus := event.NewBus()
	listingCache := product.NewListingCache()
	invalidateListings := func(ctx context.Context, ev event.Event) {
		listingCache.Clear()
	}
	bus.Subscribe(event.TopicProducts, invalidateListings)
	bus.Subscribe(event.TopicCategories, invalidateListings)

	closers := []func() error{database.Close}
	if broker := strings.TrimSpace(os.Getenv("KAFKA_BROKER")); broker != "" {
		publisher := event.NewKafkaPublisher(broker, envOrDefault("KAFKA_TOPIC", "shop-events"))
		forward := func(ctx context.Context, ev event.Event) {
			if err := publisher.Publish(ctx, ev.Key, ev.Payload); err != nil {
				logger.Error("kafka_publish_failed", map[string]any{"key": ev.Key, "error": err.Error()})
			}
		}
		bus.Subscribe(event.TopicProducts, forward)
		bus.Subscribe(event.TopicCategories, forward)
		closers = append(closers, publisher.Close)
	}

	productRepo := product.NewRepository(database)
	productHandler := product.NewHandler(productRepo, listingCache, bus)
	categoryHandler := category.NewHandler(category.NewRepository(database), bus)
	couponHandler := coupon.NewHandler(coupon.NewService(coupon.NewRepository(database)))
	orderHandler := order.NewHandler(order.NewRepository(database))
	commentHandler := comment.NewHandler(comment.NewRepository(database))

	loginLimiter := auth.NewLoginRateLimiter(
		envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiPrefix+"/users/register", userHandler.Register)
	mux.Handle("POST "+apiPrefix+"/users/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST "+apiPrefix+"/users/refreshToken", authHandler.Refresh)
	mux.HandleFunc("POST "+apiPrefix+"/users/details", userHandler.Details)

	mux.HandleFunc("GET "+apiPrefix+"/products", productHandler.List)
	mux.HandleFunc("GET "+apiPrefix+"/products/{id}", productHandler.Get)
	mux.Handle("POST "+apiPrefix+"/products", auth.RequireRole("admin", http.HandlerFunc(productHandler.Create)))
	mux.Handle("PUT "+apiPrefix+"/products/{id}", auth.RequireRole("admin", http.HandlerFunc(productHandler.Update)))
	mux.Handle("DELETE "+apiPrefix+"/products/{id}", auth.RequireRole("admin", http.HandlerFunc(productHandler.Delete)))

	mux.HandleFunc("GET "+apiPrefix+"/categories", categoryHandler.List)
	mux.Handle("POST "+apiPrefix+"/categories", auth.RequireRole("admin", http.HandlerFunc(categoryHandler.Create)))
	mux.Handle("PUT "+apiPrefix+"/categories/{id}", auth.RequireRole("admin", http.HandlerFunc(categoryHandler.Update)))
	mux.Handle("DELETE "+apiPrefix+"/categories/{id}", auth.RequireRole("admin", http.HandlerFunc(categoryHandler.Delete)))

	mux.HandleFunc("POST "+apiPrefix+"/orders", orderHandler.Create)
	mux.HandleFunc("GET "+apiPrefix+"/orders", orderHandler.ListMine)
	mux.HandleFunc("GET "+apiPrefix+"/orders/{id}", orderHandler.Get)
	mux.Handle("PUT "+apiPrefix+"/orders/{id}", auth.RequireRole("admin", http.HandlerFunc(orderHandler.UpdateStatus)))
	mux.Handle("DELETE "+apiPrefix+"/orders/{id}", auth.RequireRole("admin", http.HandlerFunc(orderHandler.Delete)))

	mux.HandleFunc("GET "+apiPrefix+"/comments", commentHandler.List)
	mux.HandleFunc("POST "+apiPrefix+"/comments", commentHandler.Create)
	mux.HandleFunc("PUT "+apiPrefix+"/comments/{id}", commentHandler.Update)
	mux.HandleFunc("DELETE "+apiPrefix+"/comments/{id}", commentHandler.Delete)

	mux.HandleFunc("GET "+apiPrefix+"/coupons/calculate", couponHandler.Calculate)
	mux.HandleFunc("GET "+apiPrefix+"/health-check", healthHandler(database))

	gate := auth.NewGate(codec, userRepo, auth.DefaultBypassRules(apiPrefix))

	// The gate attaches the principal to the request it forwards, so the
	// request log sits inside it to see the authenticated subject.
	handler := observability.Recover(logger,
		gate.Middleware(observability.RequestLogging(logger, mux)))

	return &Runtime{
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			var firstErr error
			for _, closeFn := range closers {
				if err := closeFn(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
