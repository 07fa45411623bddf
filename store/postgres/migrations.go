package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the vial store.
var Migrations = migrate.NewGroup("vial")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_vial_shots",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vial_shots (
    id         TEXT PRIMARY KEY,
    date       TEXT NOT NULL DEFAULT '',
    brand      TEXT NOT NULL DEFAULT '',
    shot_type  TEXT NOT NULL DEFAULT '',
    amount_ml  TEXT NOT NULL DEFAULT '',
    amount_mg  TEXT NOT NULL DEFAULT '',
    location   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_vial_shots_order ON vial_shots (date DESC, created_at, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS vial_shots`)
				return err
			},
		},
	)
}
