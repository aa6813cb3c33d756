// Package pgstore is a Postgres-backed tavernkit.History: it loads a
// session's transcript into memory once (tavernkit.History is a read-only,
// in-build snapshot interface) and also knows how to append new turns back
// to the table. Grounded on the teacher's database.go (pgx.Rows scanning,
// FieldDescriptions-free direct Scan here since the schema is fixed) and
// cmd/migrateprojects-s3/main.go's pgxpool.New pooling pattern.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"tavernkit"
)

// Store is a pgxpool-backed chat transcript for one session.
type Store struct {
	pool      *pgxpool.Pool
	sessionID string
}

// Open creates a connection pool to dsn. Callers own the returned pool's
// lifetime via Close.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the chat_messages table if it doesn't already exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chat_messages (
	id                  TEXT PRIMARY KEY,
	session_id          TEXT NOT NULL,
	role                TEXT NOT NULL,
	content             TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	swipes              JSONB NOT NULL DEFAULT '[]',
	active_swipe_index  INTEGER NOT NULL DEFAULT 0,
	visible             BOOLEAN NOT NULL DEFAULT true,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	turn_order          BIGSERIAL
)`)
	if err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	return nil
}

// Load reads every message for sessionID, ordered by turn_order, into an
// in-memory tavernkit.History snapshot for one Build call.
func Load(ctx context.Context, pool *pgxpool.Pool, sessionID string) (*tavernkit.SliceHistory, error) {
	rows, err := pool.Query(ctx, `
SELECT id, role, content, name, swipes, active_swipe_index, visible, created_at
FROM chat_messages WHERE session_id = $1 ORDER BY turn_order ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query: %w", err)
	}
	defer rows.Close()

	var messages []tavernkit.ChatMessage
	for rows.Next() {
		var m tavernkit.ChatMessage
		var role string
		var swipesJSON []byte
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Name, &swipesJSON, &m.ActiveSwipeIndex, &m.Visible, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan: %w", err)
		}
		m.Role = tavernkit.Role(role)
		if len(swipesJSON) > 0 {
			if err := json.Unmarshal(swipesJSON, &m.Swipes); err != nil {
				return nil, fmt.Errorf("pgstore: unmarshal swipes: %w", err)
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: rows: %w", err)
	}
	return tavernkit.NewSliceHistory(messages), nil
}

// Append inserts one new message for sessionID.
func Append(ctx context.Context, pool *pgxpool.Pool, sessionID string, m tavernkit.ChatMessage) error {
	swipesJSON, err := json.Marshal(m.Swipes)
	if err != nil {
		return fmt.Errorf("pgstore: marshal swipes: %w", err)
	}
	_, err = pool.Exec(ctx, `
INSERT INTO chat_messages (id, session_id, role, content, name, swipes, active_swipe_index, visible, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	content = EXCLUDED.content, swipes = EXCLUDED.swipes,
	active_swipe_index = EXCLUDED.active_swipe_index, visible = EXCLUDED.visible`,
		m.ID, sessionID, string(m.Role), m.Content, m.Name, swipesJSON, m.ActiveSwipeIndex, m.Visible, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgstore: append: %w", err)
	}
	return nil
}
