// Package registry persists facility profiles in SQLite or Postgres and
// keeps an in-memory copy for queries.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/model"
)

// Dialect selects placeholder style and driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS facilities (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    province TEXT NOT NULL DEFAULT '',
    lat DOUBLE PRECISION NOT NULL DEFAULT 0,
    lng DOUBLE PRECISION NOT NULL DEFAULT 0,
    municipality TEXT NOT NULL,
    area TEXT NOT NULL,
    block TEXT NOT NULL DEFAULT '',
    backup TEXT NOT NULL,
    equipment TEXT NOT NULL DEFAULT '[]',
    updated_at BIGINT NOT NULL
);`

// SQLStore reads and writes facility profiles through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	log     logger.Logger
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dialect != SQLite && dialect != Postgres {
		return nil, fmt.Errorf("unknown registry dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}
	s := NewSQLStore(db, dialect)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// SetLogger reports rows skipped by Load to log.
func (s *SQLStore) SetLogger(log logger.Logger) { s.log = log }

// EnsureSchema creates the facilities table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Upsert inserts or replaces a profile.
func (s *SQLStore) Upsert(ctx context.Context, p model.FacilityProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	eq, err := json.Marshal(p.Equipment)
	if err != nil {
		return err
	}
	f := p.Facility
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO facilities
        (id, name, province, lat, lng, municipality, area, block, backup, equipment, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            province = excluded.province,
            lat = excluded.lat,
            lng = excluded.lng,
            municipality = excluded.municipality,
            area = excluded.area,
            block = excluded.block,
            backup = excluded.backup,
            equipment = excluded.equipment,
            updated_at = excluded.updated_at`),
		f.ID, f.Name, f.Province, f.Location.Lat, f.Location.Lng,
		f.Area.Municipality, f.Area.Area, f.Area.Block,
		p.Backup.String(), string(eq), s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert facility %s: %w", f.ID, err)
	}
	return nil
}

// UpdateBackup changes the backup status of one facility.
func (s *SQLStore) UpdateBackup(ctx context.Context, id string, status model.BackupPowerStatus) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE facilities SET backup = ?, updated_at = ? WHERE id = ?`),
		status.String(), s.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update backup %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("facility %q: %w", id, model.ErrNotFound)
	}
	return nil
}

// Load returns every stored profile ordered by id. Rows with an unknown
// backup status or unreadable equipment are skipped.
func (s *SQLStore) Load(ctx context.Context) ([]model.FacilityProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, province, lat, lng, municipality, area, block, backup, equipment
        FROM facilities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load facilities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.FacilityProfile
	for rows.Next() {
		var p model.FacilityProfile
		var backup, eq string
		f := &p.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Province, &f.Location.Lat, &f.Location.Lng,
			&f.Area.Municipality, &f.Area.Area, &f.Area.Block, &backup, &eq); err != nil {
			return nil, err
		}
		if p.Backup, err = model.ParseBackupPowerStatus(backup); err != nil {
			s.skip(f.ID, err)
			continue
		}
		if err := json.Unmarshal([]byte(eq), &p.Equipment); err != nil {
			s.skip(f.ID, fmt.Errorf("equipment: %w", err))
			continue
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLStore) skip(id string, err error) {
	if s.log != nil {
		s.log.With(map[string]any{"facility_id": id}).Warnf("skipping stored facility: %v", err)
	}
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return errors.New("registry store not open")
	}
	return s.db.Close()
}
