package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"radiswap/internal/amount"
	"radiswap/internal/model"
	"radiswap/internal/pool"
	"radiswap/internal/resource"
)

// txn collects undo steps for one instruction. Steps run in reverse order.
type txn struct {
	undo []func()
}

func (t *txn) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// withdraw takes a.Amount of a.Resource out of acct.
func (l *Ledger) withdraw(tx *txn, acct *account, a model.AssetAmount) (resource.Bucket, error) {
	mgr, err := l.resource(a.Resource)
	if err != nil {
		return resource.Bucket{}, err
	}
	amt, err := amount.Parse(a.Amount)
	if err != nil {
		return resource.Bucket{}, err
	}
	if err := mgr.CheckAmount(amt); err != nil {
		return resource.Bucket{}, err
	}

	v, ok := acct.vaults[mgr.Address()]
	if !ok {
		v = resource.NewVault(mgr.Address())
	}
	b, err := v.Take(amt)
	if err != nil {
		return resource.Bucket{}, fmt.Errorf("account %q: %w", acct.alias, err)
	}
	tx.onRollback(func() {
		_ = v.Put(b)
	})
	return b, nil
}

// credit deposits b into acct, opening a vault for the resource if needed.
func (l *Ledger) credit(tx *txn, acct *account, b resource.Bucket) error {
	v, ok := acct.vaults[b.Resource()]
	if !ok {
		v = resource.NewVault(b.Resource())
		acct.vaults[b.Resource()] = v
		tx.onRollback(func() {
			delete(acct.vaults, b.Resource())
		})
	}
	if err := v.Put(b); err != nil {
		return err
	}
	tx.onRollback(func() {
		_, _ = v.Take(b.Amount())
	})
	return nil
}

// guardPool rewinds p to its current state if the transaction rolls back.
// Pool calls run after the withdrawals that fund them, so the pool is
// restored before those deposits go back to the account.
func (l *Ledger) guardPool(tx *txn, p *pool.Pool) {
	before := p.State()
	tx.onRollback(func() {
		if err := p.Restore(before); err != nil {
			l.logger.Error("restore pool", zap.String("pool", before.Address.Hex()), zap.Error(err))
		}
	})
}
