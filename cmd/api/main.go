package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/restaurantcrm/backend/internal/database"
	"github.com/restaurantcrm/backend/internal/modules/auth"
	"github.com/restaurantcrm/backend/internal/modules/media"
	"github.com/restaurantcrm/backend/internal/modules/order"
	"github.com/restaurantcrm/backend/internal/modules/product"
	"github.com/restaurantcrm/backend/internal/modules/stats"
	"github.com/restaurantcrm/backend/internal/modules/user"
	"github.com/restaurantcrm/backend/internal/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on environment")
	}

	ctx := context.Background()

	// ── Postgres ────────────────────────────────────────────
	db, err := database.Connect(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Successfully connected to the database!")

	// ── Redis (session revocation) ──────────────────────────
	redisClient := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal(err)
	}

	// ── RabbitMQ (realtime change feed) ─────────────────────
	var feed realtime.Publisher = realtime.NopPublisher{}
	if url := os.Getenv("AMQP_URL"); url != "" {
		pub, err := realtime.DialPublisher(url)
		if err != nil {
			log.Fatal(err)
		}
		defer pub.Close()
		feed = pub
		fmt.Println("RabbitMQ change feed connected")
	} else {
		log.Println("AMQP_URL unset, realtime change feed disabled")
	}

	jwtKey := os.Getenv("JWT_SECRET")
	if jwtKey == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// ── Media store ─────────────────────────────────────────
	images, err := media.NewDiskStore(envOr("MEDIA_DIR", "./media"), "/media")
	if err != nil {
		log.Fatal(err)
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	sessions := auth.NewRedisSessionStore(redisClient)
	authService := auth.NewService(userRepo, sessions, []byte(jwtKey))
	authMW := auth.NewMiddleware(authService)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Menu & inventory ────────────────────────────────────
	productRepo := product.NewPostgresRepository(db)
	productService := product.NewService(productRepo, images, feed)
	productHandler := product.NewHandler(productService)

	// ── Orders ──────────────────────────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo, feed)
	orderHandler := order.NewHandler(orderService)

	// ── Dashboard ───────────────────────────────────────────
	statsHandler := stats.NewHandler(orderService)

	// Any signed-in role: menu reads and the full order surface (the
	// lifecycle table gates transitions per role inside the service).
	router.Group(func(r chi.Router) {
		r.Use(authMW.RequireAuth())
		productHandler.RegisterReadRoutes(r)
		orderHandler.RegisterRoutes(r)
	})

	// Admin only: profile management, product writes, statistics.
	router.Group(func(r chi.Router) {
		r.Use(authMW.RequireRole(user.RoleAdmin))
		userHandler.RegisterRoutes(r)
		productHandler.RegisterWriteRoutes(r)
		statsHandler.RegisterRoutes(r)
	})

	images.RegisterRoutes(router)

	// ── Start Server ─────────────────────────────────────────
	port := envOr("APP_PORT", "8080")
	fmt.Printf("Restaurant CRM API starting on :%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
