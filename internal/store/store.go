// Package store persists rendered images on disk under random names and
// indexes them in SQLite so expired renders can be swept.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a render name is unknown or expired.
var ErrNotFound = errors.New("store: render not found")

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	width      INTEGER NOT NULL,
	height     INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS renders_expires ON renders(expires_at);
`

// namePattern matches the names Put hands out. Anything else is rejected
// before touching the filesystem.
var namePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.png$`)

// Stats summarizes the store contents.
type Stats struct {
	Count      int
	TotalBytes int64
}

// Store writes render PNGs to a directory and tracks their lifetimes.
type Store struct {
	dir string
	db  *sql.DB
	ttl time.Duration
	log *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// Open creates the output directory and index if needed. A zero ttl
// disables expiry and the background sweeper.
func Open(dir, dbPath string, ttl time.Duration, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	s := &Store{
		dir:  dir,
		db:   db,
		ttl:  ttl,
		log:  log,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if ttl > 0 {
		go s.sweepLoop()
	} else {
		close(s.done)
	}
	return s, nil
}

// Put writes png to disk under a fresh random name and records it in the
// index. It returns the name clients use to retrieve the image.
func (s *Store) Put(ctx context.Context, png []byte, width, height int) (string, error) {
	name := uuid.NewString() + ".png"
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("store: write image: %w", err)
	}

	now := time.Now()
	expires := int64(0)
	if s.ttl > 0 {
		expires = now.Add(s.ttl).Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renders (name, created_at, expires_at, width, height, size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, now.Unix(), expires, width, height, len(png))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store: index image: %w", err)
	}

	s.log.Info("render stored",
		zap.String("name", name),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("bytes", len(png)))
	return name, nil
}

// Open returns the image bytes stored under name, or ErrNotFound when the
// name is malformed, unknown, or expired.
func (s *Store) Open(ctx context.Context, name string) ([]byte, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrNotFound
	}

	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM renders WHERE name = ?`, name).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: query index: %w", err)
	}
	if expires > 0 && expires <= time.Now().Unix() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read image: %w", err)
	}
	return data, nil
}

// Stats returns the number of live renders and their total size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM renders
		 WHERE expires_at = 0 OR expires_at > ?`, time.Now().Unix()).
		Scan(&st.Count, &st.TotalBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}

// Close stops the sweeper and closes the index.
func (s *Store) Close() error {
	close(s.stop)
	<-s.done
	return s.db.Close()
}

func (s *Store) sweepLoop() {
	defer close(s.done)

	interval := s.ttl / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.Sweep(context.Background()); err != nil {
				s.log.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep removes expired renders from disk and the index.
func (s *Store) Sweep(ctx context.Context) error {
	now := time.Now().Unix()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM renders WHERE expires_at > 0 AND expires_at <= ?`, now)
	if err != nil {
		return err
	}
	var expired []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		expired = append(expired, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	for _, name := range expired {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			s.log.Warn("sweep: remove file", zap.String("name", name), zap.Error(err))
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM renders WHERE expires_at > 0 AND expires_at <= ?`, now); err != nil {
		return err
	}

	s.log.Info("swept expired renders", zap.Int("count", len(expired)))
	return nil
}
