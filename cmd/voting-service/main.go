package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuspulse/platform/pkg/ballot"
	"github.com/campuspulse/platform/pkg/common/config"
	"github.com/campuspulse/platform/pkg/common/database"
	"github.com/campuspulse/platform/pkg/common/events"
	"github.com/campuspulse/platform/pkg/common/logger"
	"github.com/campuspulse/platform/pkg/common/middleware"
	"github.com/campuspulse/platform/pkg/common/throttle"
	"github.com/campuspulse/platform/pkg/observability/metrics"
	"github.com/campuspulse/platform/pkg/otp"
	"github.com/campuspulse/platform/pkg/registry"
	"github.com/campuspulse/platform/pkg/session"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	registryRepo := registry.NewRepository(db)
	otpRepo := otp.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	ballotRepo := ballot.NewRepository(db, sessionRepo)

	for _, migrate := range []func() error{
		registryRepo.AutoMigrate,
		otpRepo.AutoMigrate,
		sessionRepo.AutoMigrate,
		ballotRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate voting tables")
		}
	}

	if cfg.RegistryCatalogPath != "" {
		catalog, err := registry.LoadCatalog(cfg.RegistryCatalogPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load registry catalog")
		}
		if err := registryRepo.Seed(context.Background(), catalog); err != nil {
			logger.Log.WithError(err).Fatal("failed to seed registry catalog")
		}
		logger.Log.WithField("elections", len(catalog.Elections)).Info("Registry catalog seeded")
	}

	redisClient := database.GetRedis()
	limiter := throttle.NewLimiter(redisClient, "otp:send", cfg.OTPSendLimit, cfg.OTPSendWindow)
	lockout := throttle.NewLockout(redisClient, "otp:verify", cfg.OTPMaxFailures, cfg.OTPLockCooldown)

	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, "voting-service")
	defer publisher.Close()

	gateway := otp.NewHTTPGateway(otp.GatewayConfig{
		URL:           cfg.SMSGatewayURL,
		APIKey:        cfg.SMSGatewayKey,
		SenderID:      cfg.SMSSenderID,
		Timeout:       cfg.SMSTimeout,
		RetryAttempts: cfg.SMSRetryAttempts,
	})

	sessionService := session.NewService(sessionRepo, cfg.SessionTTL)
	otpService := otp.NewService(otpRepo, registryRepo, sessionService, gateway, limiter, lockout, publisher, otp.Options{
		CodeLength: cfg.OTPCodeLength,
		TTL:        cfg.OTPTTL,
	})
	ballotService := ballot.NewService(ballotRepo, sessionService, registryRepo, publisher)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go otp.NewReaper(otpRepo, cfg.OTPReaperInterval, cfg.OTPRetentionGrace).Run(reaperCtx)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	otp.NewHandler(otpService).Register(router)
	ballot.NewHandler(ballotService).Register(router)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.VotingServicePort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Voting service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start voting service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down voting service...")
	stopReaper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Voting service forced to shutdown")
	}
	logger.Log.Info("Voting service stopped")
}
