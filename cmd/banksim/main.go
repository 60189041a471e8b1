// Command banksim runs the external bank simulator as a standalone HTTP service so the
// wallet-service can be exercised against a remote bank (BANK_MODE=remote).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/transfa/wallet-service/internal/banksim"
	"github.com/transfa/wallet-service/internal/config"
	"github.com/transfa/wallet-service/pkg/kvstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	var ledger banksim.Ledger = banksim.NewMemoryLedger()
	if cfg.BankSimLedger == "redis" && cfg.RedisURL != "" {
		client, err := kvstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"redis url parse failed\" err=%v", err)
		}
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"redis ping failed\" err=%v", err)
		}
		ledger = banksim.NewRedisLedger(client, cfg.RedisKeyPrefix)
		log.Println("level=info component=bootstrap msg=\"using redis ledger\"")
	}

	sim := banksim.NewSimulator(ledger, cfg.BankSimLatency(), cfg.DefaultCurrency)
	if err := sim.Seed(context.Background(), cfg.SeedAccountNumbers()); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"seed failed\" err=%v", err)
	}
	if cfg.BankSimAPIKey == "" {
		log.Println("level=warn component=bootstrap msg=\"BANK_SIM_API_KEY not set; simulator accepts unauthenticated calls\"")
	}

	serverAddr := fmt.Sprintf(":%s", cfg.BankSimPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           banksim.Routes(banksim.NewHandler(sim), cfg.BankSimAPIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("level=info component=http msg=\"bank simulator listening\" addr=%s latency=%s", serverAddr, cfg.BankSimLatency())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	log.Println("level=info component=http msg=\"shutdown complete\"")
}
