package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ecfresh/internal/api"
	"ecfresh/internal/cache"
	"ecfresh/internal/config"
	"ecfresh/internal/db"
	apperrors "ecfresh/internal/errors"
	"ecfresh/internal/logger"
	"ecfresh/internal/repository"
	"ecfresh/internal/service"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	catalog  repository.CatalogStore
	orders   repository.OrderStore
	accounts repository.AccountDirectory
	admins   repository.AdminAuthRepository
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	zl, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to open store", zap.Error(err))
	}
	defer st.close()

	carts, closeCarts, err := openCartStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer closeCarts()

	if !cfg.StripeEnabled() {
		zl.Warn("STRIPE_SECRET_KEY not set, online payments will fail")
	}
	payments := service.NewStripeService(cfg.StripeSecretKey, cfg.FrontendURL)
	sender := service.NewSenderService(service.NewSendGridEmail(cfg, zl), service.NewTwilioSMS(cfg, zl), cfg.Location, zl)

	cartSvc := service.NewCartService(carts, st.catalog)
	checkoutSvc := service.NewCheckoutService(cartSvc, st.accounts, st.orders, payments, sender, cfg.Location, zl)
	orderSvc := service.NewOrderService(st.orders, st.accounts, payments, sender, cfg.Location, zl)
	adminAuthSvc := service.NewAdminAuthService(st.admins, cfg.JWTSecret)

	if err := bootstrapAdmin(ctx, adminAuthSvc, cfg, zl); err != nil {
		zl.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	jobs, err := service.NewJobService(orderSvc, zl).Start()
	if err != nil {
		zl.Fatal("failed to schedule jobs", zap.Error(err))
	}

	router := api.Router{
		Catalog:        api.NewCatalogHandler(service.NewCatalogService(st.catalog), checkoutSvc, zl),
		Cart:           api.NewCartHandler(cartSvc, zl),
		Checkout:       api.NewCheckoutHandler(checkoutSvc, zl),
		Orders:         api.NewOrderHandler(orderSvc, zl),
		Admin:          api.NewAdminHandler(service.NewAdminService(st.catalog, zl), orderSvc, zl),
		AdminAuth:      api.NewAdminAuthHandler(adminAuthSvc, zl),
		Stripe:         api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, orderSvc, zl),
		Accounts:       service.NewAccountService(st.accounts, st.orders, zl),
		AdminSecret:    cfg.JWTSecret,
		CustomerSecret: cfg.AuthJWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		Log:            zl,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("server running", zap.String("port", cfg.Port), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	<-jobs.Stop().Done()
	sender.Wait()
}

func openStores(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			catalog:  mem,
			orders:   mem,
			accounts: repository.NewMemoryAccounts(),
			admins:   repository.NewMemoryAdmins(),
			close:    func() error { return nil },
		}, nil
	}

	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.RunMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}
	pg := repository.NewPostgresStore(conn)
	return &stores{
		catalog:  pg,
		orders:   pg,
		accounts: repository.NewAccountRepository(conn),
		admins:   repository.NewAdminAuthRepository(conn),
		close:    conn.Close,
	}, nil
}

func openCartStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (cache.CartStore, func() error, error) {
	if cfg.RedisAddr == "" {
		zl.Warn("REDIS_ADDR not set, carts are kept in memory")
		return cache.NewMemoryCartStore(), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return cache.NewRedisCartStore(client), client.Close, nil
}

func bootstrapAdmin(ctx context.Context, svc service.AdminAuthService, cfg *config.Config, zl *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	err := svc.CreateAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if he, ok := apperrors.As(err); ok && he.Code == http.StatusConflict {
		return nil
	}
	if err == nil {
		zl.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
	}
	return err
}
