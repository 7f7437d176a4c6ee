package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saurav7545/smartbus/models"
)

// PostgresRouteRepository serves route listings, details and search.
type PostgresRouteRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRouteRepository(db *PostgresDB) *PostgresRouteRepository {
	return &PostgresRouteRepository{pool: db.pool}
}

// GetAllRoutes lists active routes with stop and bus counts.
func (r *PostgresRouteRepository) GetAllRoutes(ctx context.Context) ([]models.RouteSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.route_id, r.route_name, r.source, r.destination, r.distance_km, r.fare_per_km,
			r.total_fare, r.route_type, r.is_active, r.created_at, r.updated_at,
			(SELECT COUNT(*) FROM route_stops s WHERE s.route_id = r.route_id),
			(SELECT COUNT(*) FROM bus_routes a WHERE a.route_id = r.route_id AND a.is_operational)
		FROM routes r
		WHERE r.is_active
		ORDER BY r.route_name`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	var summaries []models.RouteSummary
	for rows.Next() {
		var s models.RouteSummary
		if err := rows.Scan(&s.RouteID, &s.RouteName, &s.Source, &s.Destination, &s.DistanceKm,
			&s.FarePerKm, &s.TotalFare, &s.RouteType, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
			&s.StopsCount, &s.ActiveBusCount); err != nil {
			return nil, fmt.Errorf("scan route summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetRouteDetails returns one route with its stops and operational buses.
func (r *PostgresRouteRepository) GetRouteDetails(ctx context.Context, routeID int64) (*models.RouteDetail, error) {
	var route models.Route
	err := r.pool.QueryRow(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes WHERE route_id = $1 AND is_active`, routeID).Scan(
		&route.RouteID, &route.RouteName, &route.Source, &route.Destination, &route.DistanceKm,
		&route.FarePerKm, &route.TotalFare, &route.RouteType, &route.IsActive,
		&route.CreatedAt, &route.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: route %d", models.ErrNotFound, routeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load route %d: %w", routeID, err)
	}

	stops, err := pgRouteStops(ctx, r.pool, route.RouteID)
	if err != nil {
		return nil, err
	}

	buses, err := pgRouteBuses(ctx, r.pool, route.RouteID, true)
	if err != nil {
		return nil, err
	}

	return &models.RouteDetail{Route: route, Stops: stops, Buses: buses}, nil
}

// SearchRoutes finds active routes between two cities. Exact matches are
// preferred; when none exist the search falls back to substring matching.
func (r *PostgresRouteRepository) SearchRoutes(ctx context.Context, source, destination string) ([]models.RouteSearchResult, error) {
	routes, err := r.searchExact(ctx, source, destination)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		routes, err = r.searchContains(ctx, source, destination)
		if err != nil {
			return nil, err
		}
	}

	results := make([]models.RouteSearchResult, 0, len(routes))
	for _, route := range routes {
		var stopsCount int
		if err := r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM route_stops WHERE route_id = $1`, route.RouteID).Scan(&stopsCount); err != nil {
			return nil, fmt.Errorf("count route stops: %w", err)
		}
		buses, err := pgRouteBuses(ctx, r.pool, route.RouteID, true)
		if err != nil {
			return nil, err
		}
		results = append(results, models.RouteSearchResult{Route: route, StopsCount: stopsCount, Buses: buses})
	}
	return results, nil
}

func (r *PostgresRouteRepository) searchExact(ctx context.Context, source, destination string) ([]models.Route, error) {
	return r.scanRoutes(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes
		WHERE is_active AND LOWER(source) = LOWER($1) AND LOWER(destination) = LOWER($2)
		ORDER BY route_name`, source, destination)
}

func (r *PostgresRouteRepository) searchContains(ctx context.Context, source, destination string) ([]models.Route, error) {
	return r.scanRoutes(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes
		WHERE is_active AND source ILIKE '%' || $1 || '%' AND destination ILIKE '%' || $2 || '%'
		ORDER BY route_name`, source, destination)
}

func (r *PostgresRouteRepository) scanRoutes(ctx context.Context, query string, args ...any) ([]models.Route, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		var route models.Route
		if err := rows.Scan(&route.RouteID, &route.RouteName, &route.Source, &route.Destination,
			&route.DistanceKm, &route.FarePerKm, &route.TotalFare, &route.RouteType,
			&route.IsActive, &route.CreatedAt, &route.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// ListCities returns every distinct city served as a source or destination,
// used by search-input validation and suggestions.
func (r *PostgresRouteRepository) ListCities(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT source FROM routes WHERE is_active
		UNION
		SELECT destination FROM routes WHERE is_active
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}
