package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"radiswap/internal/model"
)

// Store provides Postgres persistence for replay output.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools stores the latest snapshot of each pool.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pools (
				alias, address, resource_a, resource_b, unit_resource,
				reserve_a, reserve_b, total_units, fee_rate, last_seq, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (alias)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_units = EXCLUDED.total_units,
				last_seq = GREATEST(pools.last_seq, EXCLUDED.last_seq),
				updated_at = now()
			WHERE pools.last_seq <= EXCLUDED.last_seq
		`,
			p.Alias,
			p.Address,
			p.ResourceA,
			p.ResourceB,
			p.UnitResource,
			p.ReserveA,
			p.ReserveB,
			p.TotalUnits,
			p.FeeRate,
			int64(p.Seq),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// InsertReceipts stores receipts keyed by sequence number. Re-inserting a
// sequence number replaces the earlier receipt.
func (s *Store) InsertReceipts(ctx context.Context, receipts []model.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range receipts {
		batch.Queue(`
			INSERT INTO receipts (
				seq, tx_id, kind, account, pool, status, error, body, executed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (seq)
			DO UPDATE SET
				tx_id = EXCLUDED.tx_id,
				kind = EXCLUDED.kind,
				account = EXCLUDED.account,
				pool = EXCLUDED.pool,
				status = EXCLUDED.status,
				error = EXCLUDED.error,
				body = EXCLUDED.body,
				executed_at = EXCLUDED.executed_at
		`,
			int64(r.Seq),
			r.TxID,
			r.Kind,
			nullable(r.Account),
			nullable(r.Pool),
			r.Status,
			nullable(r.Error),
			r,
			executedAt(r.ExecutedAt),
		)
	}
	return s.sendBatch(ctx, batch, len(receipts))
}

// UpsertPoolStats stores per-pool activity totals.
func (s *Store) UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error {
	if len(stats) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stats {
		batch.Queue(`
			INSERT INTO pool_stats (
				pool, address, swaps, adds, removes, volume_a, volume_b, fee_a, fee_b,
				first_seq, last_seq, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
			ON CONFLICT (pool)
			DO UPDATE SET
				swaps = EXCLUDED.swaps,
				adds = EXCLUDED.adds,
				removes = EXCLUDED.removes,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				first_seq = EXCLUDED.first_seq,
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
		`,
			st.Pool,
			st.Address,
			int64(st.Swaps),
			int64(st.Adds),
			int64(st.Removes),
			st.VolumeA,
			st.VolumeB,
			st.FeeA,
			st.FeeB,
			int64(st.FirstSeq),
			int64(st.LastSeq),
		)
	}
	return s.sendBatch(ctx, batch, len(stats))
}

// LoadState returns last_seq for a replay name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts last_seq for a replay name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, updated_at = now()
	`, name, int64(seq))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func executedAt(s string) *time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &ts
}
