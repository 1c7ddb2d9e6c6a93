package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	auditlog "github.com/Betmate-ap/betmate-api/internal/audit"
	auditrepo "github.com/Betmate-ap/betmate-api/internal/audit/repository"
	authhandler "github.com/Betmate-ap/betmate-api/internal/auth/handler"
	authservice "github.com/Betmate-ap/betmate-api/internal/auth/service"
	"github.com/Betmate-ap/betmate-api/internal/config"
	"github.com/Betmate-ap/betmate-api/internal/db"
	healthhandler "github.com/Betmate-ap/betmate-api/internal/health/handler"
	refreshtokenrepo "github.com/Betmate-ap/betmate-api/internal/refreshtoken/repository"
	"github.com/Betmate-ap/betmate-api/internal/security"
	"github.com/Betmate-ap/betmate-api/internal/server"
	"github.com/Betmate-ap/betmate-api/internal/server/middleware"
	"github.com/Betmate-ap/betmate-api/internal/telemetry"
	teleotel "github.com/Betmate-ap/betmate-api/internal/telemetry/otel"
	"github.com/Betmate-ap/betmate-api/internal/telemetry/producer"
	userrepo "github.com/Betmate-ap/betmate-api/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	ctx := context.Background()
	providers, err := teleotel.NewProviders(ctx, cfg.OTLPEndpoint, "betmate-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	observeHash, err := telemetry.NewHashDurationObserver(providers.MeterProvider)
	if err != nil {
		log.Printf("telemetry: hash histogram disabled: %v", err)
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}

	// Events go to Kafka when brokers are configured, else to OTel logs.
	var emitter telemetry.EventEmitter
	if kafkaProducer != nil {
		emitter = kafkaProducer
	} else {
		emitter = teleotel.NewEventEmitter(providers.LoggerProvider)
	}

	auditLogger := auditlog.NewLogger(
		auditrepo.NewPostgresRepository(conn),
		middleware.GetClientIP,
	)

	svc := authservice.NewAuthService(
		userrepo.NewPostgresRepository(conn),
		refreshtokenrepo.NewPostgresRepository(conn),
		security.NewHasher(cfg.BcryptCost),
		tokens,
		auditLogger,
		observeHash,
	)

	e := echo.New()
	e.HideBanner = true
	server.Register(e, &server.Deps{
		AuthHandler:   authhandler.NewAuthHandler(svc, cfg.RefreshTTL(), cfg.CookieSecure()),
		HealthHandler: healthhandler.NewHealthHandler(conn),
		Tokens:        tokens,
		Emitter:       emitter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(e, "betmate-api"),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits drain before tearing down exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
