package bi

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const activityDDL = `
CREATE SCHEMA IF NOT EXISTS bi;
CREATE TABLE IF NOT EXISTS bi.slack_channel_activity (
  id SERIAL PRIMARY KEY,
  channel TEXT NOT NULL,
  messages INT NOT NULL,
  period TEXT NOT NULL,
  num_members INT DEFAULT 0,
  is_archived BOOLEAN DEFAULT false,
  is_private BOOLEAN DEFAULT false,
  collected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_channel_collected ON bi.slack_channel_activity(channel, collected_at DESC);
`

const activityInsert = `
INSERT INTO bi.slack_channel_activity (channel, messages, period, num_members, is_archived, is_private)
VALUES ($1, $2, $3, $4, $5, $6)
`

// PostgresSink appends collected rows to bi.slack_channel_activity,
// bootstrapping the schema on first write.
type PostgresSink struct {
	url     string
	connect func(ctx context.Context, url string) (pgxConn, error)
}

// pgxConn is the slice of *pgx.Conn the sink uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error)
	Close(ctx context.Context) error
}

// pgconnCommandTag keeps the interface free of pgconn types.
type pgconnCommandTag = interface{ String() string }

type realConn struct{ conn *pgx.Conn }

func (c realConn) Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error) {
	tag, err := c.conn.Exec(ctx, sql, args...)
	return tag, err
}

func (c realConn) Close(ctx context.Context) error { return c.conn.Close(ctx) }

// NewPostgresSink builds a sink for the given connection URL.
func NewPostgresSink(url string) *PostgresSink {
	return &PostgresSink{
		url: url,
		connect: func(ctx context.Context, url string) (pgxConn, error) {
			conn, err := pgx.Connect(ctx, url)
			if err != nil {
				return nil, err
			}
			return realConn{conn: conn}, nil
		},
	}
}

// Write inserts one row per channel. The connection lives for the write
// only; collections are infrequent enough that pooling buys nothing.
func (s *PostgresSink) Write(ctx context.Context, rows []ChannelActivity, period string) error {
	if s.url == "" {
		return fmt.Errorf("postgres url not configured")
	}

	conn, err := s.connect(ctx, s.url)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, activityDDL); err != nil {
		return fmt.Errorf("postgres schema bootstrap: %w", err)
	}
	for _, r := range rows {
		if _, err := conn.Exec(ctx, activityInsert,
			r.Channel, r.Messages, period, r.NumMembers, r.IsArchived, r.IsPrivate); err != nil {
			return fmt.Errorf("postgres insert for %s: %w", r.Channel, err)
		}
	}
	return nil
}
