package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/bikemap/internal/filter"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}
		instance, initErr = Open(filepath.Join(duckdbDir, cfg.DBName+".duckdb"))
	})
	return instance, initErr
}

// Open opens a DuckDB database at path, in memory when path is empty, and
// creates the features table.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Close closes the singleton connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

const schema = `CREATE TABLE IF NOT EXISTS features (
	id             VARCHAR,
	kind           VARCHAR,
	name           VARCHAR,
	highway_type   VARCHAR,
	bicycle        VARCHAR,
	cycle_network  VARCHAR,
	ref            VARCHAR,
	state          VARCHAR,
	cycleway_left  VARCHAR,
	cycleway_right VARCHAR,
	properties     VARCHAR
)`

// LoadFeatures replaces the features table with fc.
func LoadFeatures(ctx context.Context, db *sql.DB, fc *geojson.FeatureCollection) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM features"); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO features VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, f := range fc.Features {
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return 0, err
		}
		p := f.Properties
		kind := "way"
		if p.MustString(filter.FieldRoute, "") == "bicycle" {
			kind = "route"
		}
		_, err = stmt.ExecContext(ctx,
			fmt.Sprint(f.ID),
			kind,
			nullable(p, "name"),
			nullable(p, filter.FieldHighwayType),
			nullable(p, filter.FieldBicycle),
			nullable(p, filter.FieldCycleNetwork),
			nullable(p, filter.FieldRef),
			nullable(p, filter.FieldState),
			nullable(p, filter.Left.Field()),
			nullable(p, filter.Right.Field()),
			string(props),
		)
		if err != nil {
			return 0, fmt.Errorf("insert %v: %w", f.ID, err)
		}
	}
	return len(fc.Features), tx.Commit()
}

// FacilityCount is the number of features of one facility kind.
type FacilityCount struct {
	Facility string `json:"facility" doc:"Facility kind" example:"lane:track"`
	Count    int    `json:"count" doc:"Number of features (lanes count once per side)"`
}

const facilityQuery = `
SELECT 'lane:' || v AS facility, count(*) AS n FROM (
	SELECT cycleway_left AS v FROM features WHERE cycleway_left IS NOT NULL AND cycleway_left <> 'no'
	UNION ALL
	SELECT cycleway_right AS v FROM features WHERE cycleway_right IS NOT NULL AND cycleway_right <> 'no'
) GROUP BY v
UNION ALL
SELECT 'route:' || coalesce(cycle_network, 'other'), count(*) FROM features
	WHERE kind = 'route' AND coalesce(state, '') <> 'proposed' GROUP BY cycle_network
UNION ALL
SELECT 'path:' || bicycle, count(*) FROM features
	WHERE highway_type = 'path' AND bicycle IS NOT NULL GROUP BY bicycle
ORDER BY 1`

// FacilityCounts summarises the loaded features by facility.
func FacilityCounts(ctx context.Context, db *sql.DB) ([]FacilityCount, error) {
	rows, err := db.QueryContext(ctx, facilityQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FacilityCount{}
	for rows.Next() {
		var c FacilityCount
		if err := rows.Scan(&c.Facility, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(p geojson.Properties, key string) any {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	return fmt.Sprint(v)
}
