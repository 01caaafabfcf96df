// trackwatch renders tracking snapshots for recently viewed orders and,
// with -watch, keeps them fresh over the venue push channel or by polling.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/venueops/go-order-tracking/internal/config"
	"github.com/venueops/go-order-tracking/internal/live"
	"github.com/venueops/go-order-tracking/internal/recent"
	"github.com/venueops/go-order-tracking/internal/redisx"
	"github.com/venueops/go-order-tracking/internal/tracking"
	"github.com/venueops/go-order-tracking/internal/view"
)

func main() {
	_ = godotenv.Load()

	order := flag.String("order", "", "order number to add to the recent list before rendering")
	watch := flag.Bool("watch", false, "keep running and re-render on live updates")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := newStore(cfg)
	client := tracking.NewClient(cfg.APIBaseURL)
	v := &view.View{
		Client:   client,
		Recents:  store,
		Out:      os.Stdout,
		Currency: cfg.Currency,
	}

	if *order != "" {
		if err := store.Touch(ctx, *order); err != nil {
			log.Fatalf("recent store: %v", err)
		}
	}

	if err := v.Refresh(ctx); err != nil {
		log.Fatalf("refresh: %v", err)
	}
	if !*watch {
		return
	}

	refresh := make(chan struct{}, 1)
	poke := func(tracking.LiveOrderUpdate) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	switch cfg.LiveMode {
	case "poll":
		p := &live.Poller{
			Client:   client,
			Interval: cfg.PollInterval,
			Orders: func(ctx context.Context) []string {
				nums, _ := store.List(ctx)
				return nums
			},
		}
		defer p.Events().OnOrderStatus(poke)()
		go p.Run(ctx)
	default:
		if cfg.VenueID == "" {
			log.Fatal("VENUE_ID is required for -watch in ws mode")
		}
		ch := live.NewChannel(live.Config{BaseURL: cfg.WSBaseURL})
		defer ch.Events().OnOrderStatus(poke)()
		defer ch.Events().OnError(func(err error) { log.Printf("live: %v", err) })()
		if err := ch.ConnectVenue(ctx, cfg.VenueID, cfg.AuthToken); err != nil {
			log.Printf("live connect: %v (retrying in background)", err)
		}
		defer ch.Disconnect()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh:
			if err := v.Refresh(ctx); err != nil {
				log.Printf("refresh: %v", err)
			}
		}
	}
}

func newStore(cfg config.Config) recent.Store {
	if cfg.RecentsOwner != "" {
		return &recent.RedisStore{RDB: redisx.New(cfg.RedisAddr), Owner: cfg.RecentsOwner}
	}
	return &recent.FileStore{Path: cfg.RecentsPath}
}
