package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const historyDBName = "history.db"

// EncryptedEventStore implements domain.EventStore using a SQLCipher
// encrypted SQLite database. Every store instance is one session.
type EncryptedEventStore struct {
	db      *sql.DB
	dbPath  string
	session string
}

// NewEncryptedEventStore opens (or creates) the encrypted history database
// in dataDir. The key is used as the SQLCipher passphrase.
func NewEncryptedEventStore(dataDir string, key []byte) (*EncryptedEventStore, error) {
	if err := validateHistoryKey(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dbPath := historyDBPath(dataDir)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// A wrong key only surfaces on first read.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	s := &EncryptedEventStore{
		db:      db,
		dbPath:  dbPath,
		session: uuid.NewString(),
	}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func historyDBPath(dataDir string) string {
	return filepath.Join(dataDir, historyDBName)
}

// OpenHistory loads (or generates) the history key in dataDir and opens the store.
// A database whose key file is gone is an error, not a fresh start.
func OpenHistory(dataDir string) (*EncryptedEventStore, error) {
	provider := NewFileKeyProvider(dataDir)
	if !provider.KeyExists() {
		if _, err := os.Stat(historyDBPath(dataDir)); err == nil {
			return nil, fmt.Errorf("%s: %w", historyDBPath(dataDir), errKeyLost)
		}
	}
	key, err := EnsureKey(provider)
	if err != nil {
		return nil, err
	}
	return NewEncryptedEventStore(dataDir, key)
}

func (s *EncryptedEventStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		seq INTEGER NOT NULL,
		occurred_at INTEGER NOT NULL,
		kind TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events (session, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists one event under the current session.
func (s *EncryptedEventStore) Record(event domain.LogEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO events (session, seq, occurred_at, kind, target, message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.session, int64(event.Seq), event.Timestamp.UnixNano(),
		string(event.Kind), event.Target, event.Message,
	)
	return err
}

// Recent returns up to limit most recent events, oldest first.
// A non-positive limit returns every stored event.
func (s *EncryptedEventStore) Recent(limit int) ([]domain.StoredEvent, error) {
	query := `SELECT session, seq, occurred_at, kind, target, message FROM events ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.StoredEvent
	for rows.Next() {
		var (
			e          domain.StoredEvent
			seq        int64
			occurredAt int64
			kind       string
		)
		if err := rows.Scan(&e.Session, &seq, &occurredAt, &kind, &e.Target, &e.Message); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.Unix(0, occurredAt)
		e.Kind = domain.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Session returns the ID stamped on events recorded by this store.
func (s *EncryptedEventStore) Session() string {
	return s.session
}

// Path returns the database file path.
func (s *EncryptedEventStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedEventStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedEventStore implements domain.EventStore.
var _ domain.EventStore = (*EncryptedEventStore)(nil)
