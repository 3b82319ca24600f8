package main

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/domination/booking-service/internal/catalog"
    "github.com/domination/booking-service/internal/config"
    "github.com/domination/booking-service/internal/database"
    "github.com/domination/booking-service/internal/engine"
    "github.com/domination/booking-service/internal/handler"
    "github.com/domination/booking-service/internal/middleware"
    "github.com/domination/booking-service/internal/queue"
    "github.com/domination/booking-service/internal/repository"
    "github.com/domination/booking-service/internal/router"
)

func main() {
    // Load .env when present; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    resRepo := repository.NewReservationRepo(db)
    catalogClient := catalog.NewClient(cfg.CatalogURL)
    admission := engine.New(resRepo, catalogClient)

    e := echo.New()

    // Redis-backed rate limiting and response caching; both degrade to
    // pass-through when Redis is unreachable.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and caching disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

    router.RegisterRoutes(e)
    router.RegisterReservations(e, handler.NewCustomerHandler(admission, resRepo), cfg.JWTSecret)
    router.RegisterProvider(e, handler.NewProviderHandler(resRepo), cfg.JWTSecret)

    // Background consumer that mirrors reservation.created events to
    // the local log file.  It maintains its own reconnect loop.
    go func() {
        if err := queue.StartReservationConsumer(); err != nil {
            log.Printf("reservation consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
