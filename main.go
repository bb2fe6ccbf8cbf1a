package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"coffee-telegram/bot"
	"coffee-telegram/broker"
	"coffee-telegram/config"
	"coffee-telegram/db"
	"coffee-telegram/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if cfg.Telegram.Token == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set")
		os.Exit(1)
	}

	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	// Set AUTO_MIGRATE=1 (or "true") to apply migrations on start.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(context.Background(), false); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := services.NewPgStore()
	sessions := services.NewMemorySessionStore()
	flow := services.NewOrderFlow(store, sessions, nil, cfg.Loyalty.CoffeeLimit, cfg.Loyalty.Category)

	b, err := bot.New(cfg, flow, sessions)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
	flow.SetNotifier(b)

	// With RABBITMQ_URL set, reward notices go through the queue and the bot consumes them.
	if cfg.Broker.URL != "" {
		conn, err := broker.Connect(cfg.Broker.URL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rabbitmq:", err)
			os.Exit(1)
		}
		defer conn.Close()
		flow.SetNotifier(broker.NewPublisher(conn))
		go func() {
			if err := broker.NewConsumer(conn, b, 1).Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("rewards consumer stopped: %v", err)
			}
		}()
		log.Printf("reward notices via rabbitmq")
	}

	// Admin bot (ADMIN_TOKEN): super admin uses LOGIN; managers use their issued password
	if cfg.Telegram.AdminToken != "" {
		admin, err := bot.NewAdminBot(cfg, store)
		if err != nil {
			fmt.Fprintln(os.Stderr, "admin bot:", err)
			os.Exit(1)
		}
		go admin.Start(ctx)
		fmt.Println("Admin bot started.")
	}

	fmt.Println("Bot started.")
	b.Start(ctx)
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
