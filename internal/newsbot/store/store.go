// Package store persists canonical articles and their categories on SQLite
// or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// ErrNotFound is returned when no article matches a lookup.
var ErrNotFound = errors.New("article not found")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    url          TEXT NOT NULL UNIQUE,
    slug         TEXT NOT NULL UNIQUE,
    category_id  INTEGER REFERENCES categories(id),
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP,
    updated_at   TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS categories (
    id   SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles (
    id           SERIAL PRIMARY KEY,
    url          TEXT NOT NULL UNIQUE,
    slug         TEXT NOT NULL UNIQUE,
    category_id  INTEGER REFERENCES categories(id),
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ,
    updated_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
`

// Article is a canonical article as stored.
type Article struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	CategoryID  int64     `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store provides article persistence.
type Store struct {
	db  *storage.DB
	now func() time.Time
}

// New creates a Store on db and initializes the schema.
func New(ctx context.Context, db *storage.DB) (*Store, error) {
	schema := sqliteSchema
	if db.DriverType() == storage.Postgres {
		schema = postgresSchema
	}
	if err := db.Migrate(ctx, schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectArticle = `
SELECT a.id, a.url, a.slug, COALESCE(c.name, ''), COALESCE(a.category_id, 0), a.title, a.description,
       a.content, a.image_url, a.source, a.author, a.published_at, a.updated_at
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id`

// GetOrCreateCategoryID returns the id of the named category, creating it if needed.
func (s *Store) GetOrCreateCategoryID(ctx context.Context, name string) (int64, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("empty category name")
	}
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), name); err != nil {
		return 0, fmt.Errorf("insert category %s: %w", name, err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT id FROM categories WHERE name = ?`), name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select category %s: %w", name, err)
	}
	return id, nil
}

// QueryRecent returns up to limit articles of a category, newest first.
// A categoryID of zero returns articles of every category.
func (s *Store) QueryRecent(ctx context.Context, categoryID int64, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if categoryID > 0 {
		rows, err = s.db.QueryContext(ctx, s.db.Rebind(selectArticle+`
WHERE a.category_id = ?
ORDER BY a.published_at DESC, a.id DESC
LIMIT ?`), categoryID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.db.Rebind(selectArticle+`
ORDER BY a.published_at DESC, a.id DESC
LIMIT ?`), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	return scanArticles(rows)
}

// Upsert stores articles keyed by URL. An existing row keeps its slug and,
// when the incoming article has no category, its category.
func (s *Store) Upsert(ctx context.Context, articles []Article) (int, error) {
	now := s.now().UTC()
	count := 0
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, a := range articles {
			slug, err := s.freeSlug(ctx, tx, a.Slug, a.URL)
			if err != nil {
				return err
			}
			var categoryID any
			if a.CategoryID > 0 {
				categoryID = a.CategoryID
			}
			_, err = tx.ExecContext(ctx, s.db.Rebind(`
INSERT INTO articles (url, slug, category_id, title, description, content, image_url, source, author, published_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (url) DO UPDATE SET
    category_id  = COALESCE(excluded.category_id, articles.category_id),
    title        = excluded.title,
    description  = excluded.description,
    content      = excluded.content,
    image_url    = excluded.image_url,
    source       = excluded.source,
    author       = excluded.author,
    published_at = excluded.published_at,
    updated_at   = excluded.updated_at`),
				a.URL, slug, categoryID, a.Title, a.Description, a.Content, a.ImageURL, a.Source, a.Author,
				a.PublishedAt.UTC(), now)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", a.URL, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// freeSlug returns slug, or a numbered variant when another URL already owns it.
func (s *Store) freeSlug(ctx context.Context, tx *sql.Tx, slug, url string) (string, error) {
	candidate := slug
	for i := 2; ; i++ {
		var owner string
		err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT url FROM articles WHERE slug = ?`), candidate).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || owner == url {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check slug %s: %w", candidate, err)
		}
		candidate = slug + "-" + strconv.Itoa(i)
	}
}

// FindBySlug returns the article with exactly this slug.
func (s *Store) FindBySlug(ctx context.Context, slug string) (*Article, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(selectArticle+` WHERE a.slug = ?`), slug)
	if err != nil {
		return nil, fmt.Errorf("find by slug: %w", err)
	}
	return first(rows)
}

// FindBySlugPrefix returns up to limit articles whose slug starts with
// prefix, compared case-insensitively, newest first.
func (s *Store) FindBySlugPrefix(ctx context.Context, prefix string, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(selectArticle+`
WHERE LOWER(a.slug) LIKE ? ESCAPE '\'
ORDER BY a.published_at DESC, a.id DESC
LIMIT ?`), escapeLike(strings.ToLower(prefix))+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("find by slug prefix: %w", err)
	}
	return scanArticles(rows)
}

// FindByTitleContains returns the newest article whose title contains text,
// compared case-insensitively.
func (s *Store) FindByTitleContains(ctx context.Context, text string) (*Article, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(selectArticle+`
WHERE LOWER(a.title) LIKE ? ESCAPE '\'
ORDER BY a.published_at DESC, a.id DESC
LIMIT 1`), "%"+escapeLike(strings.ToLower(text))+"%")
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	return first(rows)
}

// ArticlesMissingCategory returns up to limit articles with no category.
func (s *Store) ArticlesMissingCategory(ctx context.Context, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(selectArticle+`
WHERE a.category_id IS NULL
ORDER BY a.id
LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query uncategorized: %w", err)
	}
	return scanArticles(rows)
}

// UpdateCategory assigns a category to an article.
func (s *Store) UpdateCategory(ctx context.Context, articleID, categoryID int64) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE articles SET category_id = ? WHERE id = ?`), categoryID, articleID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func first(rows *sql.Rows) (*Article, error) {
	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return &articles[0], nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			a         Article
			published sql.NullTime
			updated   sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.URL, &a.Slug, &a.Category, &a.CategoryID, &a.Title, &a.Description,
			&a.Content, &a.ImageURL, &a.Source, &a.Author, &published, &updated); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if published.Valid {
			a.PublishedAt = published.Time.UTC()
		}
		if updated.Valid {
			a.UpdatedAt = updated.Time.UTC()
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
