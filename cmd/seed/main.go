package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mansara-store/internal/config"
	"mansara-store/internal/logger"
	"mansara-store/internal/seed"
	"mansara-store/internal/server"
	"mansara-store/internal/service"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	opts := seed.DefaultOptions()
	var fakerSeed uint64

	flag.IntVarP(&opts.Customers, "customers", "n", opts.Customers, "Number of demo customers to register")
	flag.IntVar(&opts.OrdersPerCustomer, "orders", opts.OrdersPerCustomer, "Orders to place for each customer")
	flag.Uint64Var(&fakerSeed, "seed", 0, "Faker seed; 0 picks a random one")
	flag.StringVar(&opts.AdminEmail, "admin-email", opts.AdminEmail, "Email of the admin profile")
	flag.StringVar(&opts.AdminPassword, "admin-password", opts.AdminPassword, "Password of the admin profile")
	flag.StringVar(&opts.CustomerPassword, "customer-password", opts.CustomerPassword, "Password shared by demo customers")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := server.OpenBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open backends", zap.Error(err))
	}
	defer backends.Close()

	tokens := service.TokenConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	}

	res, err := seed.New(backends.Store, tokens, fakerSeed, log).Run(ctx, opts)
	if err != nil {
		backends.Close()
		log.Fatal("Seed failed", zap.Error(err))
	}

	for _, o := range res.Orders {
		log.Info("Seeded order",
			zap.String("order_number", o.OrderNumber),
			zap.String("total", o.TotalAmount.StringFixed(2)),
		)
	}
}
