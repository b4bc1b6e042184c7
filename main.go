package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LocalBoard/internal/board"
	"LocalBoard/internal/config"
	"LocalBoard/internal/db"
	"LocalBoard/internal/net"
	"LocalBoard/internal/state"
	"LocalBoard/internal/ui"

	"golang.org/x/sync/errgroup"
)

func main() {
	headless := flag.Bool("headless", false, "run only the relay, without a window")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr, ok := net.ParseLink(flag.Arg(0)); ok {
		runClient(ctx, cfg, addr)
		return
	}
	if err := runHost(ctx, stop, cfg, *headless); err != nil {
		log.Fatalf("Host stopped: %v", err)
	}
}

func runHost(ctx context.Context, stop context.CancelFunc, cfg config.Config, headless bool) error {
	log.Println("Starting as HOST")
	store, err := db.Open(ctx, cfg.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	relay := net.NewRelay(store, cfg.OutputDir)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           relay.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[HOST] Relay listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Advertise {
		server, err := net.Advertise(cfg.Port)
		if err != nil {
			log.Printf("[MDNS] Advertising disabled: %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	if !headless {
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
		if err := runBoard(gctx, cfg, addr, net.ShareLink(cfg.Port)); err != nil {
			log.Printf("[HOST] Board: %v", err)
		}
		stop()
	}
	return g.Wait()
}

func runClient(ctx context.Context, cfg config.Config, addr string) {
	log.Println("Starting as CLIENT")
	if addr == "" {
		found, err := net.Browse(cfg.DiscoveryTimeout)
		if err != nil {
			log.Fatalf("No relay given and none discovered: %v", err)
		}
		log.Printf("[MDNS] Found relay at %s", found)
		addr = found
	}
	if err := runBoard(ctx, cfg, addr, ""); err != nil {
		log.Fatalf("Board: %v", err)
	}
}

// runBoard opens a window on a board joined to the relay at addr and blocks
// until the window closes.
func runBoard(ctx context.Context, cfg config.Config, addr, shareLink string) error {
	b, err := board.New(board.Options{
		Width:          cfg.Width,
		Height:         cfg.Height,
		Background:     cfg.Background,
		Style:          state.Style{Color: cfg.Color, Width: cfg.StrokeWidth},
		ShareClear:     cfg.ShareClear,
		RecordInterval: cfg.RecordInterval,
		Format:         cfg.Format(),
	})
	if err != nil {
		return err
	}
	defer b.Close()

	ch := net.NewWSChannel(net.RelayURL(addr), cfg.ReconnectMax)
	b.Attach(ch)
	ch.Start(ctx)
	defer ch.Close()

	log.Printf("[BOARD] Joined %s as %s", addr, b.Origin())
	ui.RunApp(b, shareLink, addr)
	return nil
}
