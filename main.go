package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bbqpos/internal/config"
	"bbqpos/internal/database"
	"bbqpos/internal/handlers"
	"bbqpos/internal/identity"
	"bbqpos/internal/notify"
	"bbqpos/internal/pos"
	"bbqpos/internal/session"
	"bbqpos/internal/store"
	"bbqpos/internal/view"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := identity.NewJWTProvider(cfg.JWTSecret, cfg.SessionTTL, cfg.SessionToken)
	bootstrap := session.New(connector(cfg), provider, cfg.InitialAuthToken)
	bootstrap.Start(ctx)
	if err := bootstrap.Wait(ctx); err != nil {
		log.Fatal(err)
	}

	owner := bootstrap.Identity().UserID
	if bootstrap.Degraded() {
		log.Printf("⚠️ running degraded as %s", owner)
	} else {
		log.Printf("session ready as %s", owner)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.RabbitMQURL != "" {
		amqpNotifier, err := notify.DialAMQP(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err != nil {
			log.Printf("⚠️ rabbitmq unavailable, logging events instead: %v", err)
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
		}
	}

	manager := pos.NewManager(bootstrap.Store(), owner, pos.WithNotifier(notifier))
	if err := manager.Start(ctx); err != nil {
		log.Printf("⚠️ live sync unavailable: %v", err)
	}

	r := gin.Default()
	handlers.RegisterRoutes(r, handlers.Deps{
		Manager:       manager,
		Confirmations: view.NewConfirmations(cfg.ConfirmTTL),
		Issuer:        provider,
		PINHash:       cfg.OperatorPINHash,
		JWTSecret:     cfg.JWTSecret,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	log.Println("listening on", srv.Addr)

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("http shutdown:", err)
	}
	if err := manager.Close(); err != nil {
		log.Println("sync shutdown:", err)
	}
	if err := bootstrap.Close(shutdownCtx); err != nil {
		log.Println("store shutdown:", err)
	}
}

func connector(cfg config.Config) session.Connector {
	if cfg.StoreDriver == "memory" {
		return func(ctx context.Context) (store.Store, error) {
			log.Println("using in-memory store")
			return store.NewMemory(), nil
		}
	}
	if cfg.StoreDriver != "mongo" {
		return func(ctx context.Context) (store.Store, error) {
			return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
		}
	}

	return func(ctx context.Context) (store.Store, error) {
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		s := database.NewMongoStore(client, cfg.DBName, cfg.AppID, cfg.PollInterval)
		log.Println("MongoDB connected to:", s)

		if err := database.EnsureMenuIndexes(s); err != nil {
			log.Printf("⚠️ menu index warning: %v", err)
		}
		if err := database.EnsureOrderIndexes(s); err != nil {
			log.Printf("⚠️ order index warning: %v", err)
		}
		return s, nil
	}
}
