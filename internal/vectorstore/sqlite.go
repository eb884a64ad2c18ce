package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/assessment-recommender/internal/catalog"
)

// InMemory opens a private SQLite database that lives as long as the store.
const InMemory = ":memory:"

// SQLiteStore persists assessments and their embeddings in a single SQLite
// table. Nearest scans every row; the catalog is small enough for that.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating when needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 30,
		duration_unknown INTEGER NOT NULL DEFAULT 0,
		categories TEXT NOT NULL DEFAULT 'K',
		skills TEXT NOT NULL DEFAULT '',
		adaptive_support TEXT NOT NULL DEFAULT 'No',
		remote_support TEXT NOT NULL DEFAULT 'Yes',
		document TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Upsert writes all items in one transaction, replacing rows with the same URL.
func (s *SQLiteStore) Upsert(ctx context.Context, items []Item) error {
	if err := validate(items); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO assessments (
		id, url, name, description, duration, duration_unknown, categories,
		skills, adaptive_support, remote_support, document, embedding, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		duration = excluded.duration,
		duration_unknown = excluded.duration_unknown,
		categories = excluded.categories,
		skills = excluded.skills,
		adaptive_support = excluded.adaptive_support,
		remote_support = excluded.remote_support,
		document = excluded.document,
		embedding = excluded.embedding,
		updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, it := range items {
		a := it.Assessment
		unknown := 0
		if a.DurationUnknown {
			unknown = 1
		}

		if _, err := stmt.ExecContext(ctx,
			ID(a.URL), a.URL, a.Name, a.Description, a.DurationMinutes, unknown,
			catalog.JoinCategories(a.Categories), strings.Join(a.SkillTags, ","),
			a.AdaptiveSupport, a.RemoteSupport, it.Document, encodeEmbedding(it.Embedding), now,
		); err != nil {
			return fmt.Errorf("upsert %q: %w", a.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Nearest returns up to n assessments ordered by ascending cosine distance to vec.
func (s *SQLiteStore) Nearest(ctx context.Context, vec []float32, n int) ([]catalog.Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT url, name, description, duration, duration_unknown, categories,
		skills, adaptive_support, remote_support, embedding
	FROM assessments`)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var hits []catalog.Hit
	for rows.Next() {
		var (
			a          catalog.Assessment
			unknown    int
			categories string
			skills     string
			blob       []byte
		)
		if err := rows.Scan(
			&a.URL, &a.Name, &a.Description, &a.DurationMinutes, &unknown, &categories,
			&skills, &a.AdaptiveSupport, &a.RemoteSupport, &blob,
		); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}

		embedding, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("assessment %q: %w", a.URL, err)
		}
		d, err := Distance(vec, embedding)
		if err != nil {
			return nil, fmt.Errorf("assessment %q: %w", a.URL, err)
		}

		a.DurationUnknown = unknown != 0
		a.Categories = catalog.ParseCategories(categories)
		if skills != "" {
			a.SkillTags = strings.Split(skills, ",")
		}

		hits = append(hits, catalog.Hit{Assessment: &a, Distance: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}

	return rank(hits, n), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&n); err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
