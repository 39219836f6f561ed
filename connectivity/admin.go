package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Admin mutates the routes table. Every change lands in SQLite, where the
// Watch loop picks it up; callers never invoke Reload themselves.
type Admin struct {
	db *sql.DB
}

// NewAdmin wraps a routes database that already has the schema applied.
func NewAdmin(db *sql.DB) *Admin {
	return &Admin{db: db}
}

// RouteRow is one row of the routes table.
type RouteRow struct {
	ServiceName string          `json:"service_name"`
	Strategy    string          `json:"strategy"`
	Endpoint    string          `json:"endpoint,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	UpdatedAt   int64           `json:"updated_at"`
}

const routeColumns = `service_name, strategy, COALESCE(endpoint, ''), COALESCE(config, '{}'), updated_at`

func scanRoute(s interface{ Scan(...any) error }) (RouteRow, error) {
	var r RouteRow
	var cfg string
	if err := s.Scan(&r.ServiceName, &r.Strategy, &r.Endpoint, &cfg, &r.UpdatedAt); err != nil {
		return RouteRow{}, err
	}
	r.Config = json.RawMessage(cfg)
	return r, nil
}

// ListRoutes returns every route, ordered by service name.
func (a *Admin) ListRoutes(ctx context.Context) ([]RouteRow, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+routeColumns+` FROM routes ORDER BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("admin: list routes: %w", err)
	}
	defer rows.Close()

	var result []RouteRow
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("admin: scan route: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRoute returns the route for a service, or nil when none exists.
func (a *Admin) GetRoute(ctx context.Context, serviceName string) (*RouteRow, error) {
	r, err := scanRoute(a.db.QueryRowContext(ctx,
		`SELECT `+routeColumns+` FROM routes WHERE service_name = ?`, serviceName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("admin: get route: %w", err)
	}
	return &r, nil
}

// UpsertRoute inserts or replaces a route. updated_at is refreshed by the
// table trigger, which is what the watcher fingerprints on.
func (a *Admin) UpsertRoute(ctx context.Context, serviceName, strategy, endpoint string, config json.RawMessage) error {
	if config == nil {
		config = json.RawMessage(`{}`)
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO routes (service_name, strategy, endpoint, config)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(service_name) DO UPDATE SET
		     strategy = excluded.strategy,
		     endpoint = excluded.endpoint,
		     config   = excluded.config`,
		serviceName, strategy, endpoint, string(config))
	if err != nil {
		return fmt.Errorf("admin: upsert route: %w", err)
	}
	return nil
}

// SeedLocal ensures each named service has a route, creating missing ones
// with the local strategy. Existing routes are left alone so an operator's
// http or noop override survives restarts.
func (a *Admin) SeedLocal(ctx context.Context, services ...string) error {
	for _, svc := range services {
		route, err := a.GetRoute(ctx, svc)
		if err != nil {
			return err
		}
		if route != nil {
			continue
		}
		if err := a.UpsertRoute(ctx, svc, "local", "", nil); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRoute removes a route. The watcher closes any transport handler the
// route had built.
func (a *Admin) DeleteRoute(ctx context.Context, serviceName string) error {
	result, err := a.db.ExecContext(ctx,
		`DELETE FROM routes WHERE service_name = ?`, serviceName)
	if err != nil {
		return fmt.Errorf("admin: delete route: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("admin: route %q not found", serviceName)
	}
	return nil
}

// SetStrategy flips only the strategy of an existing route: "noop" parks a
// perception service, "local" brings it back, with zero downtime.
func (a *Admin) SetStrategy(ctx context.Context, serviceName, strategy string) error {
	result, err := a.db.ExecContext(ctx,
		`UPDATE routes SET strategy = ? WHERE service_name = ?`,
		strategy, serviceName)
	if err != nil {
		return fmt.Errorf("admin: set strategy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("admin: route %q not found", serviceName)
	}
	return nil
}
