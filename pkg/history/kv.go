package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// KV is the persistence port the history store writes through. One
// well-known key maps to one opaque byte blob; the store never knows
// which backend is injected.
type KV interface {
	// Load returns the stored bytes for key and whether the key exists.
	Load(key string) ([]byte, bool, error)
	// Save stores the bytes for key, replacing any previous value.
	Save(key string, data []byte) error
	// Close releases backend resources.
	Close() error
}

// OpenKV creates a KV backend from a locator string:
//
//	memory:            volatile in-process map
//	file:<dir>         one file per key under dir
//	sqlite:<path>      SQLite database file
//	postgres:<dsn>     PostgreSQL connection string
func OpenKV(locator string) (KV, error) {
	scheme, rest, _ := strings.Cut(locator, ":")
	switch scheme {
	case "memory":
		return NewMemoryKV(), nil
	case "file":
		return NewFileKV(rest)
	case "sqlite":
		return NewSQLiteKV(rest)
	case "postgres", "postgresql":
		return NewPostgresKV(rest)
	default:
		return nil, fmt.Errorf("unsupported KV locator %q", locator)
	}
}

// MemoryKV is a volatile map-backed KV for tests and one-off runs.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Load(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (m *MemoryKV) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}

// FileKV stores one file per key in a directory. The default backend:
// history survives across runs with nothing to install.
type FileKV struct {
	dir string
}

// NewFileKV creates a file-backed KV rooted at dir, creating it if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, fmt.Errorf("file KV requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create KV directory: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// path flattens the key into a single safe filename.
func (f *FileKV) path(key string) string {
	name := strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(key)
	return filepath.Join(f.dir, name+".json")
}

func (f *FileKV) Load(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FileKV) Save(key string, data []byte) error {
	// Write-then-rename so a crash mid-save never truncates the slot.
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Close() error {
	return nil
}

// SQLiteKV stores slots in a single-table SQLite database.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV opens (creating if needed) a SQLite-backed KV at dbPath.
func NewSQLiteKV(dbPath string) (*SQLiteKV, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite KV requires a database path")
	}
	// WAL + busy timeout for concurrent access; single connection to
	// serialize writes and avoid SQLITE_BUSY.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	kv := &SQLiteKV{db: db}
	if err := kv.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return kv, nil
}

func (s *SQLiteKV) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_slots (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteKV) Load(key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT value FROM kv_slots WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return data, true, nil
}

func (s *SQLiteKV) Save(key string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO kv_slots (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

// PostgresKV stores slots in a single-table PostgreSQL database.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV opens a Postgres-backed KV using a lib/pq DSN.
func NewPostgresKV(dsn string) (*PostgresKV, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres KV requires a DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	kv := &PostgresKV{db: db}
	if err := kv.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return kv, nil
}

func (p *PostgresKV) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_slots (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`
	_, err := p.db.Exec(schema)
	return err
}

func (p *PostgresKV) Load(key string) ([]byte, bool, error) {
	var data []byte
	err := p.db.QueryRow(`SELECT value FROM kv_slots WHERE key = $1`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return data, true, nil
}

func (p *PostgresKV) Save(key string, data []byte) error {
	_, err := p.db.Exec(`
		INSERT INTO kv_slots (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`, key, data, time.Now().UTC())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("failed to save %s: %s: %w", key, pqErr.Code.Name(), err)
		}
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Close() error {
	return p.db.Close()
}
