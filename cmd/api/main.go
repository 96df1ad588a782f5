package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-retail-fulfillment/internal/cart"
	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/config"
	"github.com/ariefcatur/go-retail-fulfillment/internal/fulfillment"
	"github.com/ariefcatur/go-retail-fulfillment/internal/httpx"
	"github.com/ariefcatur/go-retail-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-retail-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-retail-fulfillment/internal/logx"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/payments"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-retail-fulfillment/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logx.New(cfg.LogMode, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer, one writer for every topic
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	// Repos & services
	products := catalog.Repo{}
	users := catalog.Users{}
	ledger := inventory.Ledger{Products: products}
	cartRepo := cart.Repo{}
	orderRepo := orders.Repo{}
	paymentRepo := payments.Repo{}

	cartSvc := &cart.Service{
		DB: db, Pool: db,
		Products: products,
		Lines:    cartRepo,
		Log:      log,
	}
	fulfillSvc := &fulfillment.Service{
		DB: db, Pool: db,
		Users:    users,
		Products: products,
		Ledger:   ledger,
		Carts:    cartRepo,
		Orders:   orderRepo,
		Producer: prod,
		Redis:    rdb,
		Name:     cfg.ServiceName,
		Log:      log,
	}
	paymentSvc := &payments.Service{
		DB: db, Pool: db,
		Payments:  paymentRepo,
		Orders:    orderRepo,
		Processor: payments.SimulatedProcessor{},
		Producer:  prod,
		Name:      cfg.ServiceName,
		Log:       log,
	}

	// Handlers
	router := httpx.NewRouter()
	(&httpx.CartHandler{Svc: cartSvc}).Register(router)
	(&httpx.OrdersHandler{Svc: fulfillSvc, Redis: rdb}).Register(router)
	(&httpx.PaymentsHandler{Svc: paymentSvc}).Register(router)
	(&httpx.ProductsHandler{Pool: db, Products: products, Svc: fulfillSvc}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox, flush remaining events
	cancel()
	prod.WaitClosed()
}
