package airquality

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// hourlyTimeLayout is the timestamp format of Open-Meteo hourly series.
const hourlyTimeLayout = "2006-01-02T15:04"

// History persists fetched air quality timeseries to a DuckDB file so
// past readings can be inspected after the forecast window rolls over.
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the DuckDB database at dbPath.
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	h := &History{db: db}
	if err := h.createTables(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

func (h *History) createTables(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS air_quality_readings (
			location VARCHAR,
			latitude DOUBLE,
			longitude DOUBLE,
			observed_at TIMESTAMP,
			pm2_5 DOUBLE,
			pm10 DOUBLE,
			ozone DOUBLE,
			nitrogen_dioxide DOUBLE,
			sulphur_dioxide DOUBLE,
			carbon_monoxide DOUBLE,
			carbon_dioxide DOUBLE,
			dust DOUBLE,
			recorded_at TIMESTAMP,
			PRIMARY KEY (location, observed_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create air_quality_readings table: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS aqi_summaries (
			location VARCHAR,
			observed_at TIMESTAMP,
			aqi INTEGER,
			category VARCHAR,
			recorded_at TIMESTAMP,
			PRIMARY KEY (location, observed_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create aqi_summaries table: %w", err)
	}
	return nil
}

// Record writes a fetched report for a location. Hourly rows are
// upserted so repeated fetches of overlapping windows do not duplicate.
func (h *History) Record(ctx context.Context, loc Location, report *Report) error {
	if report == nil || len(report.Timeseries.Time) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO air_quality_readings (
			location, latitude, longitude, observed_at,
			pm2_5, pm10, ozone, nitrogen_dioxide, sulphur_dioxide,
			carbon_monoxide, carbon_dioxide, dust, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ts := report.Timeseries
	for i, raw := range ts.Time {
		observedAt, err := parseHourlyTime(raw)
		if err != nil {
			continue
		}

		_, err = stmt.ExecContext(ctx,
			loc.Name,
			loc.Latitude,
			loc.Longitude,
			observedAt,
			nullable(ts.PM25, i),
			nullable(ts.PM10, i),
			nullable(ts.Ozone, i),
			nullable(ts.NitrogenDioxide, i),
			nullable(ts.SulphurDioxide, i),
			nullable(ts.CarbonMonoxide, i),
			nullable(ts.CarbonDioxide, i),
			nullable(ts.Dust, i),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reading at %s: %w", raw, err)
		}
	}

	summaryAt, err := parseHourlyTime(report.Summary.Timestamp)
	if err == nil {
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO aqi_summaries (
				location, observed_at, aqi, category, recorded_at
			) VALUES (?, ?, ?, ?, ?)
		`, loc.Name, summaryAt, report.Summary.AQI, report.Summary.Category, now)
		if err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the DuckDB connection.
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

func parseHourlyTime(raw string) (time.Time, error) {
	if t, err := time.Parse(hourlyTimeLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func nullable(series []*float64, i int) sql.NullFloat64 {
	if i < len(series) && series[i] != nil {
		return sql.NullFloat64{Float64: *series[i], Valid: true}
	}
	return sql.NullFloat64{}
}
