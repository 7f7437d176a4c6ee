package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/saurav7545/smartbus/config"
	"github.com/saurav7545/smartbus/handlers"
	"github.com/saurav7545/smartbus/metrics"
	"github.com/saurav7545/smartbus/repository"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	collector := metrics.NewCollector()

	var (
		trackingRepo handlers.TrackingRepository
		routeRepo    handlers.RouteRepository
		userRepo     handlers.UserRepository
		alertRepo    handlers.AlertRepository
		pinger       handlers.Pinger
		backend      string
	)

	if cfg.DatabaseURL != "" {
		backend = "postgres"
		log.Println("Connecting to Postgres database")
		db, err := repository.NewPostgresDB(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Postgres database: %v", err)
		}
		defer db.Close()

		alerts := repository.NewPostgresAlertRepository(db)
		trackingRepo = repository.NewPostgresTrackingRepository(db, alerts)
		routeRepo = repository.NewPostgresRouteRepository(db)
		userRepo = repository.NewPostgresUserRepository(db)
		alertRepo = alerts
		pinger = db
	} else {
		backend = "sqlite"
		log.Printf("Connecting to SQLite database: %s", cfg.DatabasePath)
		db, err := repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		defer db.Close()

		alerts := repository.NewSQLiteAlertRepository(db.GetDB())
		trackingRepo = repository.NewSQLiteTrackingRepository(db.GetDB(), alerts)
		routeRepo = repository.NewSQLiteRouteRepository(db.GetDB())
		userRepo = repository.NewSQLiteUserRepository(db.GetDB())
		alertRepo = alerts
		pinger = db
	}
	log.Printf("Database connection established (%s)", backend)

	trackingHandler := handlers.NewTrackingHandler(trackingRepo, collector)
	routeHandler := handlers.NewRouteHandler(routeRepo)
	favoriteHandler := handlers.NewFavoriteHandler(userRepo)
	alertHandler := handlers.NewAlertHandler(alertRepo, collector)
	healthHandler := handlers.NewHealthHandler(pinger, backend)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	if cfg.MetricsEnabled {
		r.Use(collector.Middleware)
	}

	r.Get("/health", healthHandler.GetHealth)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", collector.Handler())
	}

	// Driver endpoints
	r.Post("/api/driver/location/update", trackingHandler.UpdateLocation)
	r.Post("/api/driver/status/update", trackingHandler.UpdateStatus)

	// Live tracking endpoints
	r.Get("/api/live/route/{routeName}", trackingHandler.GetRouteOverview)
	r.Get("/api/live/{busNumber}", trackingHandler.GetLiveBus)

	// Route catalogue endpoints
	r.Get("/api/routes", routeHandler.GetAllRoutes)
	r.Get("/api/routes/search", routeHandler.SearchRoutes)
	r.Get("/api/routes/{routeId}", routeHandler.GetRouteDetails)

	// Favorites and notifications
	r.Post("/api/user/favorites", favoriteHandler.AddFavorite)
	r.Get("/api/user/favorites", favoriteHandler.ListFavorites)
	r.Patch("/api/user/favorites/{favoriteId}", favoriteHandler.UpdateFavorite)
	r.Delete("/api/user/favorites/{favoriteId}", favoriteHandler.DeleteFavorite)
	r.Get("/api/user/notifications/arrivals", favoriteHandler.GetArrivalNotifications)

	// Alerts
	r.Get("/api/alerts", alertHandler.ListAlerts)
	r.Post("/api/alerts", alertHandler.CreateAlert)

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Driver endpoints:")
	log.Println("  POST /api/driver/location/update")
	log.Println("  POST /api/driver/status/update")
	log.Println("Live tracking endpoints:")
	log.Println("  GET /api/live/{busNumber}")
	log.Println("  GET /api/live/route/{routeName}")
	log.Println("Route endpoints:")
	log.Println("  GET /api/routes")
	log.Println("  GET /api/routes/{routeId}")
	log.Println("  GET /api/routes/search?from=...&to=...")
	log.Println("User endpoints:")
	log.Println("  POST/GET /api/user/favorites")
	log.Println("  PATCH/DELETE /api/user/favorites/{favoriteId}")
	log.Println("  GET /api/user/notifications/arrivals")
	log.Println("Alerts:")
	log.Println("  GET/POST /api/alerts")
	log.Println("Health:")
	log.Println("  GET /health (with database check)")

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
