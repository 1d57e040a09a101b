package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tokenledger store (SQLite).
var Migrations = migrate.NewGroup("tokenledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tokenledger_tokens",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokenledger_tokens (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    symbol       TEXT NOT NULL,
    decimals     INTEGER NOT NULL DEFAULT 18,
    total_supply TEXT NOT NULL,
    owner        TEXT NOT NULL,
    created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tokenledger_tokens_symbol ON tokenledger_tokens (symbol);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokenledger_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokenledger_events",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokenledger_events (
    id           TEXT PRIMARY KEY,
    token_id     TEXT NOT NULL REFERENCES tokenledger_tokens (id),
    seq          INTEGER NOT NULL,
    kind         TEXT NOT NULL,
    caller       TEXT NOT NULL,
    delegated    INTEGER NOT NULL DEFAULT 0,
    from_address TEXT NOT NULL,
    to_address   TEXT NOT NULL,
    amount       TEXT NOT NULL,
    occurred_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tokenledger_events_token_seq ON tokenledger_events (token_id, seq);
CREATE INDEX IF NOT EXISTS idx_tokenledger_events_from ON tokenledger_events (token_id, from_address);
CREATE INDEX IF NOT EXISTS idx_tokenledger_events_to ON tokenledger_events (token_id, to_address);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokenledger_events`)
				return err
			},
		},
	)
}
