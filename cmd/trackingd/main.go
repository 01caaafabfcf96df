package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/venueops/go-order-tracking/internal/config"
	"github.com/venueops/go-order-tracking/internal/httpx"
	kafkax "github.com/venueops/go-order-tracking/internal/kafka"
	"github.com/venueops/go-order-tracking/internal/postgres"
	"github.com/venueops/go-order-tracking/internal/redisx"
	"github.com/venueops/go-order-tracking/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for hub-originated status changes
	prod := kafkax.NewProducer(cfg.KafkaBrokers, server.TopicOrderEvents, 1024)
	prod.Start(ctx)

	hub := server.NewHub()

	// Event intake: broker events -> venue broadcasts
	intake := &server.Intake{Hub: hub, Redis: rdb, Service: cfg.ServiceName}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, server.TopicOrderEvents, 4)
	go func() {
		log.Printf("intake consumer started: group=%s topic=%s", cfg.KafkaGroup, server.TopicOrderEvents)
		if err := cons.Start(ctx, intake.HandleMessage); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	router := httpx.NewRouter()
	h := &server.Handler{
		Source:   &server.Repo{DB: db},
		Redis:    rdb,
		Hub:      hub,
		Producer: prod,
		Token:    cfg.WSToken,
		Service:  cfg.ServiceName,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}
