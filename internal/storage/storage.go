// Package storage persists campaigns, the institution catalog, and
// notification preferences in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"log"
)

// Store wraps the database handle for all persistence operations.
type Store struct {
	db *sql.DB
}

// New creates a store and ensures the schema exists.
func New(db *sql.DB) *Store {
	s := &Store{db: db}
	s.ensureSchema()
	return s
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ensureSchema() {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			target_all BOOLEAN NOT NULL DEFAULT false,
			institutions JSONB NOT NULL DEFAULT '[]',
			departments JSONB NOT NULL DEFAULT '[]',
			levels JSONB NOT NULL DEFAULT '[]',
			send_at TIMESTAMPTZ,
			end_at TIMESTAMPTZ,
			recurring BOOLEAN NOT NULL DEFAULT false,
			time_slots JSONB NOT NULL DEFAULT '[]',
			campaign_type TEXT NOT NULL DEFAULT 'EMAIL',
			from_name TEXT NOT NULL DEFAULT '',
			from_email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS campaign_attachments (
			id UUID PRIMARY KEY,
			campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS institutions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			departments JSONB NOT NULL DEFAULT '[]',
			levels JSONB NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id TEXT PRIMARY KEY,
			campaign_updates BOOLEAN NOT NULL DEFAULT true,
			delivery_reports BOOLEAN NOT NULL DEFAULT true,
			billing_alerts BOOLEAN NOT NULL DEFAULT true,
			product_news BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE campaigns DROP CONSTRAINT IF EXISTS campaigns_status_check`,
		`ALTER TABLE campaigns ADD CONSTRAINT campaigns_status_check
			CHECK (status IN ('draft', 'pending', 'scheduled', 'sent', 'deleted'))`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_created ON campaigns(created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			log.Printf("storage: schema statement failed: %v", err)
		}
	}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
