package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vincentbai/pixel-bridge/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

var ErrInvalidEvent = errors.New("invalid event")

// Database is the tracker sink: every forwarded event lands in
// tracked_events together with the routing options it was sent with.
type Database struct {
	db  *sql.DB
	now func() time.Time
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS tracked_events(
	  id           INTEGER PRIMARY KEY,
	  event_id     TEXT    NOT NULL,
	  name         TEXT    NOT NULL,
	  ts_utc       INTEGER NOT NULL,
	  ts_iso       TEXT    NOT NULL,
	  data_json    TEXT    NOT NULL CHECK (json_valid(data_json)),
	  options_json TEXT,
	  forwarded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tracked_events_name ON tracked_events(name);
	CREATE INDEX IF NOT EXISTS idx_tracked_events_ts   ON tracked_events(ts_utc);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func ValidateEvent(event models.TrackedEvent) error {
	if event.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidEvent)
	}
	if event.TSUTC <= 0 {
		return fmt.Errorf("%w: timestamp must be positive", ErrInvalidEvent)
	}
	return nil
}

// TrackEvent records a forwarded event. Failures are logged, never returned.
func (d *Database) TrackEvent(event models.TrackedEvent, options *models.RoutingOptions, _ models.InitializeFunc) {
	if err := d.InsertTrackedEvent(event, options); err != nil {
		log.Printf("Database error: %v", err)
	}
}

func (d *Database) InsertTrackedEvent(event models.TrackedEvent, options *models.RoutingOptions) error {
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	var optionsJSON sql.NullString
	if options != nil {
		raw, err := json.Marshal(options)
		if err != nil {
			return fmt.Errorf("failed to marshal routing options: %w", err)
		}
		optionsJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = d.db.Exec(`INSERT INTO tracked_events(event_id, name, ts_utc, ts_iso, data_json, options_json, forwarded_at) VALUES(?,?,?,?,json(?),?,?)`,
		event.ID, event.Name, event.TSUTC, event.TSISO, string(jsonData), optionsJSON, d.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert tracked event: %w", err)
	}
	return nil
}

type TrackedRecord struct {
	Event       models.TrackedEvent    `json:"event"`
	Options     *models.RoutingOptions `json:"options"`
	ForwardedAt int64                  `json:"forwarded_at"`
}

// ListTrackedEvents returns up to limit records in forwarding order.
func (d *Database) ListTrackedEvents(limit int) ([]TrackedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(`SELECT event_id, name, ts_utc, ts_iso, data_json, options_json, forwarded_at FROM tracked_events ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked events: %w", err)
	}
	defer rows.Close()

	var records []TrackedRecord
	for rows.Next() {
		var (
			record      TrackedRecord
			dataJSON    string
			optionsJSON sql.NullString
		)
		if err := rows.Scan(&record.Event.ID, &record.Event.Name, &record.Event.TSUTC, &record.Event.TSISO, &dataJSON, &optionsJSON, &record.ForwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracked event: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &record.Event.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		if optionsJSON.Valid {
			record.Options = &models.RoutingOptions{}
			if err := json.Unmarshal([]byte(optionsJSON.String), record.Options); err != nil {
				return nil, fmt.Errorf("failed to unmarshal routing options: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracked events: %w", err)
	}
	return records, nil
}

func (d *Database) CountTrackedEvents() (int64, error) {
	var count int64
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM tracked_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracked events: %w", err)
	}
	return count, nil
}
