package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saurav7545/smartbus/models"
)

// SQLiteRouteRepository serves route listings, details and search.
type SQLiteRouteRepository struct {
	db *sql.DB
}

func NewSQLiteRouteRepository(db *sql.DB) *SQLiteRouteRepository {
	return &SQLiteRouteRepository{db: db}
}

// GetAllRoutes lists active routes with stop and bus counts.
func (r *SQLiteRouteRepository) GetAllRoutes(ctx context.Context) ([]models.RouteSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
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
		var (
			s         models.RouteSummary
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&s.RouteID, &s.RouteName, &s.Source, &s.Destination, &s.DistanceKm,
			&s.FarePerKm, &s.TotalFare, &s.RouteType, &s.IsActive, &createdAt, &updatedAt,
			&s.StopsCount, &s.ActiveBusCount); err != nil {
			return nil, fmt.Errorf("scan route summary: %w", err)
		}
		s.CreatedAt = parseTime(createdAt)
		s.UpdatedAt = parseTime(updatedAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetRouteDetails returns one route with its stops and operational buses.
func (r *SQLiteRouteRepository) GetRouteDetails(ctx context.Context, routeID int64) (*models.RouteDetail, error) {
	route, err := sqScanRoute(r.db.QueryRowContext(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes WHERE route_id = ? AND is_active`, routeID), fmt.Sprintf("route %d", routeID))
	if err != nil {
		return nil, err
	}

	stops, err := sqRouteStops(ctx, r.db, route.RouteID)
	if err != nil {
		return nil, err
	}

	buses, err := sqRouteBuses(ctx, r.db, route.RouteID, true)
	if err != nil {
		return nil, err
	}

	return &models.RouteDetail{Route: *route, Stops: stops, Buses: buses}, nil
}

// SearchRoutes finds active routes between two cities. Exact matches are
// preferred; when none exist the search falls back to substring matching.
func (r *SQLiteRouteRepository) SearchRoutes(ctx context.Context, source, destination string) ([]models.RouteSearchResult, error) {
	routes, err := r.scanRoutes(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes
		WHERE is_active AND LOWER(source) = LOWER(?) AND LOWER(destination) = LOWER(?)
		ORDER BY route_name`, source, destination)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		routes, err = r.scanRoutes(ctx, `
			SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
				total_fare, route_type, is_active, created_at, updated_at
			FROM routes
			WHERE is_active AND source LIKE '%' || ? || '%' AND destination LIKE '%' || ? || '%'
			ORDER BY route_name`, source, destination)
		if err != nil {
			return nil, err
		}
	}

	results := make([]models.RouteSearchResult, 0, len(routes))
	for _, route := range routes {
		var stopsCount int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM route_stops WHERE route_id = ?`, route.RouteID).Scan(&stopsCount); err != nil {
			return nil, fmt.Errorf("count route stops: %w", err)
		}
		buses, err := sqRouteBuses(ctx, r.db, route.RouteID, true)
		if err != nil {
			return nil, err
		}
		results = append(results, models.RouteSearchResult{Route: route, StopsCount: stopsCount, Buses: buses})
	}
	return results, nil
}

func (r *SQLiteRouteRepository) scanRoutes(ctx context.Context, query string, args ...any) ([]models.Route, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search routes: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		route, err := sqScanRoute(rows, "route")
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}
	return routes, rows.Err()
}

// ListCities returns every distinct city served as a source or destination.
func (r *SQLiteRouteRepository) ListCities(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
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
