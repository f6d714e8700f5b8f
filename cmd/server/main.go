package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rideconnect/internal/backend"
	"rideconnect/internal/config"
	"rideconnect/internal/events"
	"rideconnect/internal/notify"
	"rideconnect/internal/payments"
	"rideconnect/internal/rides"
	"rideconnect/internal/store"
	"rideconnect/internal/tracking"
	"rideconnect/internal/users"
	"rideconnect/pkg/jwt"
	"rideconnect/pkg/kafka"
	"rideconnect/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Config & logging ──
	cfg, cfgErr := config.Load(os.Getenv("RIDECONNECT_CONFIG"))
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfgErr != nil {
		log.Fatal("invalid config", zap.Error(cfgErr))
	}
	if err := jwt.Init(cfg.JWTSecret); err != nil {
		log.Fatal("jwt init failed", zap.Error(err))
	}

	// ── 2. Storage ──
	kv, closeKV, err := backend.Open(ctx, cfg.Store, log)
	if err != nil {
		log.Fatal("store backend failed", zap.Error(err))
	}
	defer closeKV()

	// ── 3. Live updates: Kafka when configured, in-process otherwise ──
	wsHub := tracking.NewHub(log)
	var publisher store.Publisher
	if cfg.Kafka.Enabled() {
		kafkaClient := kafka.NewClient(cfg.Kafka.Brokers, log)
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopics(ctx,
			events.TopicUserRegistered,
			events.TopicRideCreated,
			events.TopicRideBooked,
			events.TopicBookingCancelled,
			events.TopicRideStatusChanged,
		); err != nil {
			log.Fatal("kafka topics failed", zap.Error(err))
		}
		notify.NewConsumer(kafkaClient, wsHub, log).Start(ctx)
		publisher = kafkaClient
	} else {
		log.Info("kafka disabled, delivering ride updates in-process")
		publisher = notify.NewConsumer(nil, wsHub, log)
	}

	// ── 4. Services ──
	st := store.New(kv,
		store.WithPublisher(publisher),
		store.WithLogger(log),
		store.WithAdminPassword(cfg.AdminPassword),
	)
	defer st.Close() // flush queued events before the publisher closes
	if err := st.Init(ctx); err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}
	paySvc := payments.NewService(kv, st, cfg.PaymentKey(), log)

	wsHub.SetSnapshot(func(ctx context.Context, rideID string) (any, bool) {
		ride, err := st.GetRide(ctx, rideID)
		if err != nil {
			return nil, false
		}
		return notify.Snapshot(ride), true
	})

	userHandler := users.NewHandler(st, log)
	rideHandler := rides.NewHandler(st, log)

	// ── 5. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"rideconnect"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", userHandler.AuthRoutes())
		r.Mount("/users", userHandler.ProfileRoutes())
		r.Mount("/admin", userHandler.AdminRoutes())
		r.Mount("/rides", rideHandler.Routes())
		r.Mount("/bookings", rideHandler.BookingRoutes())
		r.Mount("/payments", payments.NewHandler(paySvc, log).Routes())
	})
	r.Mount("/ws", wsHub.Routes())

	// ── 6. Start server ──
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("rideconnect listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// ── 7. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	srv.Shutdown(shutCtx)
	cancel() // stop consumers
}
