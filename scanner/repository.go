// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"database/sql"
	"fmt"
)

// Repository handles persistence of scraped articles.
type Repository interface {
	// CreateSchema creates the articles table.
	CreateSchema() error

	// Save inserts or replaces one article.
	Save(a *Article) error

	// KnownURLs returns the set of already stored permalinks.
	KnownURLs() (map[string]bool, error)

	// ListRecent returns up to limit articles, most recent first.
	ListRecent(limit int) ([]*Article, error)

	// Count returns the number of stored articles.
	Count() (int, error)
}

type sqlArticleRepository struct {
	db *sql.DB
}

// NewRepository creates an article repository over DuckDB.
func NewRepository(db *sql.DB) Repository {
	return &sqlArticleRepository{db: db}
}

func (r *sqlArticleRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			url        VARCHAR PRIMARY KEY,
			title      VARCHAR NOT NULL,
			author     VARCHAR,
			published  TIMESTAMP,
			image_url  VARCHAR,
			body       VARCHAR,
			fetched_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating articles table: %w", err)
	}

	return nil
}

func (r *sqlArticleRepository) Save(a *Article) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to save article %q: %w", a.URL, err)
	}

	var published interface{}
	if !a.Published.IsZero() {
		published = a.Published
	}

	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO articles (url, title, author, published, image_url, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.URL, a.Title, a.Author, published, a.ImageURL, a.Body, a.FetchedAt)
	if err != nil {
		return fmt.Errorf("saving article %q: %w", a.URL, err)
	}

	return nil
}

func (r *sqlArticleRepository) KnownURLs() (map[string]bool, error) {
	rows, err := r.db.Query("SELECT url FROM articles")
	if err != nil {
		return nil, fmt.Errorf("listing known urls: %w", err)
	}
	defer rows.Close()

	known := map[string]bool{}

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning url: %w", err)
		}

		known[u] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating urls: %w", err)
	}

	return known, nil
}

func (r *sqlArticleRepository) ListRecent(limit int) ([]*Article, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT url, title, author, published, image_url, body, fetched_at
		FROM articles
		ORDER BY published DESC NULLS LAST, fetched_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var articles []*Article

	for rows.Next() {
		a := &Article{}

		var published sql.NullTime

		if err := rows.Scan(&a.URL, &a.Title, &a.Author, &published, &a.ImageURL, &a.Body, &a.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}

		if published.Valid {
			a.Published = published.Time.UTC()
		}

		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}

	return articles, nil
}

func (r *sqlArticleRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT count(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}

	return n, nil
}
