package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-tableside/internal/auth"
	"ms-tableside/internal/config"
	"ms-tableside/internal/database/migrations"
	"ms-tableside/internal/kafka"
	"ms-tableside/internal/kitchen"
	kitchen_api "ms-tableside/internal/kitchen/api"
	"ms-tableside/internal/logger"
	"ms-tableside/internal/menu"
	menu_api "ms-tableside/internal/menu/api"
	"ms-tableside/internal/orders"
	orders_api "ms-tableside/internal/orders/api"
	orders_db "ms-tableside/internal/orders/db"
	orders_redis "ms-tableside/internal/orders/redis"
	"ms-tableside/internal/pickup"
	"ms-tableside/internal/sse"
	"ms-tableside/internal/tables"
	tables_api "ms-tableside/internal/tables/api"
	tables_db "ms-tableside/internal/tables/db"
	"ms-tableside/internal/tickets"
	tickets_api "ms-tableside/internal/tickets/api"
	tickets_db "ms-tableside/internal/tickets/db"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Tableside Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	migrateOpts := migrations.DefaultOptions()
	migrateOpts.SeedMenu = os.Getenv("SEED_MENU") == "true"
	runner := migrations.NewRunner(bunDB, migrateOpts)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	log.Info("DATABASE", "Schema migrations applied")

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topics := kafka.Topics{
			OrderCreated:  cfg.Kafka.Topics.OrderCreated,
			OrderStatus:   cfg.Kafka.Topics.OrderStatus,
			TicketUpdated: cfg.Kafka.Topics.TicketUpdated,
			TableUpdated:  cfg.Kafka.Topics.TableUpdated,
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, topics)
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics.List()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
		defer producer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events stay in-process only")
	}

	emitter := sse.NewEmitter()

	tablesDB := &tables_db.DB{Bun: bunDB}
	ticketsDB := &tickets_db.DB{Bun: bunDB}
	ordersDB := &orders_db.DB{Bun: bunDB}
	menuDB := &menu.DB{Bun: bunDB}

	tableService := tables.NewService(tablesDB, ticketsDB, emitter, nil)
	ticketService := tickets.NewService(ticketsDB, tableService, menuDB, emitter, nil, cfg.Restaurant.TaxRate)

	codeGuard := orders_redis.NewCodeGuard(redisClient, cfg.Restaurant.PickupCodeTTL)
	allocator := pickup.NewAllocator(ordersDB, codeGuard)
	orderService := orders.NewService(ordersDB, menuDB, allocator, codeGuard, emitter, nil, cfg.Restaurant.TaxRate)

	if producer != nil {
		tableService.Kafka = producer
		ticketService.Kafka = producer
		orderService.Kafka = producer
	}

	projection := kitchen.NewProjection(ordersDB, ticketsDB)

	if err := tableService.Initialize(ctx, cfg.Restaurant.TableCount); err != nil {
		log.Fatal("TABLE", fmt.Sprintf("Table registry initialization failed: %v", err))
	}
	log.Info("TABLE", fmt.Sprintf("Table registry ready with %d tables", cfg.Restaurant.TableCount))

	if cleared, err := tableService.ReconcileOrphans(ctx); err != nil {
		log.Warn("TABLE", fmt.Sprintf("Startup reconcile failed: %v", err))
	} else if len(cleared) > 0 {
		log.Warn("TABLE", fmt.Sprintf("Startup reconcile cleared orphaned tables: %v", cleared))
	}

	// Periodic sweep for tables orphaned by a crash between a ticket close
	// and its table clear.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if cleared, err := tableService.ReconcileOrphans(ctx); err != nil {
				log.Warn("TABLE", fmt.Sprintf("Reconcile sweep failed: %v", err))
			} else if len(cleared) > 0 {
				log.Info("TABLE", fmt.Sprintf("Reconcile sweep cleared tables: %v", cleared))
			}
		}
	}()

	authCache := auth.NewCache(redisClient, 5*time.Minute)

	tableHandler := tables_api.NewHandler(tableService, emitter, log)
	ticketHandler := tickets_api.NewHandler(ticketService, emitter, log)
	orderHandler := orders_api.NewHandler(orderService, emitter, log)
	kitchenHandler := kitchen_api.NewHandler(projection, log)
	menuHandler := menu_api.NewHandler(menuDB)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/api/menu", menuHandler.ListMenu)
	r.Get("/api/menu/{menuItemId}", menuHandler.GetMenuItem)
	log.Info("ROUTER", "Public menu endpoints registered under /api/menu")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authCache))
		log.Info("AUTH", "Identity middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.Checkout)
				r.Get("/mine", orderHandler.ListMine)
				r.Get("/mine/events", orderHandler.StreamMine)
				r.Get("/{orderId}", orderHandler.GetOrder)
				r.Get("/{orderId}/qr", orderHandler.GetPickupQR)
				r.Get("/{orderId}/events", orderHandler.StreamOrder)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(auth.RoleStaff, auth.RoleExpo))
					r.Get("/", orderHandler.ListAll)
					r.Get("/active", orderHandler.ListActive)
					r.Get("/active/events", orderHandler.StreamActive)
					r.Put("/{orderId}/status", orderHandler.UpdateStatus)
					r.Put("/{orderId}/items/{itemId}/status", orderHandler.UpdateItemStatus)
				})
			})
			log.Info("ROUTER", "Order routes registered under /api/orders")

			r.Route("/tables", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleStaff, auth.RoleExpo))
				r.Get("/", tableHandler.ListTables)
				r.Get("/events", tableHandler.StreamTables)
				r.With(auth.RequireRole(auth.RoleAdmin)).Post("/reconcile", tableHandler.Reconcile)
				r.Get("/{tableNumber}", tableHandler.GetTable)
				r.Get("/{tableNumber}/events", tableHandler.StreamTable)
				r.Put("/{tableNumber}/status", tableHandler.UpdateStatus)
				r.Post("/{tableNumber}/clear", tableHandler.ClearTable)
				r.Get("/{tableNumber}/tickets", ticketHandler.ListForTable)
				r.Get("/{tableNumber}/tickets/events", ticketHandler.StreamTableTickets)
			})
			log.Info("ROUTER", "Table routes registered under /api/tables")

			r.Route("/tickets", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleStaff, auth.RoleExpo))
				r.Post("/", ticketHandler.CreateTicket)
				r.Get("/mine", ticketHandler.ListMine)
				r.Get("/togo", ticketHandler.ListTogo)
				r.Get("/togo/events", ticketHandler.StreamTogo)
				r.Get("/expo/events", ticketHandler.StreamExpo)
				r.Get("/{ticketId}", ticketHandler.GetTicket)
				r.Get("/{ticketId}/events", ticketHandler.StreamTicket)
				r.Post("/{ticketId}/items", ticketHandler.AddItem)
				r.Delete("/{ticketId}/items/{itemId}", ticketHandler.RemoveItem)
				r.Delete("/{ticketId}/items/at/{index}", ticketHandler.RemoveItemAt)
				r.Put("/{ticketId}/items/{itemId}/quantity", ticketHandler.UpdateItemQuantity)
				r.Put("/{ticketId}/items/{itemId}/status", ticketHandler.UpdateItemStatus)
				r.Post("/{ticketId}/send", ticketHandler.SendToKitchen)
				r.Post("/{ticketId}/close", ticketHandler.CloseTicket)
				r.Delete("/{ticketId}", ticketHandler.DeleteTicket)
			})
			log.Info("ROUTER", "Ticket routes registered under /api/tickets")

			r.Route("/kitchen", func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleStaff, auth.RoleExpo))
				r.Get("/orders", kitchenHandler.ActiveOrders)
				r.Get("/expo", kitchenHandler.ExpoTickets)
				r.Get("/togo", kitchenHandler.TogoTickets)
			})
			log.Info("ROUTER", "Kitchen routes registered under /api/kitchen")
		})
	})

	// No WriteTimeout: SSE connections stay open indefinitely.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Tableside Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Tableside Service shutdown complete")
	}
}
