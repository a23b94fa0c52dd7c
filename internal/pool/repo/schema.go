package repo

import (
	"context"
	"fmt"
)

// schema cria carteiras, ledger e a linha única da rodada corrente
const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	id            UUID PRIMARY KEY,
	user_id       TEXT NOT NULL UNIQUE,
	balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
	version       BIGINT NOT NULL DEFAULT 1,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS wallet_ledger (
	id             BIGSERIAL PRIMARY KEY,
	wallet_id      UUID NOT NULL REFERENCES wallets(id),
	operation_type TEXT NOT NULL,
	amount_cents   BIGINT NOT NULL,
	description    TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pool_round (
	id             SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	round_id       TEXT NOT NULL,
	state          SMALLINT NOT NULL,
	required_count INT NOT NULL,
	stake_cents    BIGINT NOT NULL,
	participants   TEXT[] NOT NULL DEFAULT '{}',
	secret         BYTEA,
	updated_at     TIMESTAMPTZ NOT NULL
);
`

// Migrate aplica o schema e garante as contas do pool
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	for _, acc := range poolAccounts {
		if _, err := p.db.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1) ON CONFLICT (user_id) DO NOTHING`,
			p.newID(), acc); err != nil {
			return fmt.Errorf("migrate account %s: %w", acc, err)
		}
	}
	return nil
}
