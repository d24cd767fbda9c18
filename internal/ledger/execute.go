package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"radiswap/internal/amount"
	"radiswap/internal/model"
	"radiswap/internal/pool"
	"radiswap/internal/resource"
)

// Execute runs one instruction as a transaction and returns its receipt. A
// rejected instruction still yields a receipt; the returned error says why
// it was rejected.
func (l *Ledger) Execute(ctx context.Context, ins model.Instruction) (model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rcpt := model.Receipt{
		TxID:       uuid.NewString(),
		Seq:        ins.Seq,
		Kind:       ins.Kind,
		Account:    ins.Account,
		Pool:       ins.Pool,
		ExecutedAt: l.now().UTC().Format(time.RFC3339Nano),
	}

	tx := &txn{}
	if err := l.apply(tx, ins, &rcpt); err != nil {
		tx.rollback()
		rcpt.Inputs = nil
		rcpt.Outputs = nil
		rcpt.State = nil
		rcpt.Status = model.StatusRejected
		rcpt.Error = err.Error()
		l.metrics.observeInstruction(ins.Kind, model.StatusRejected)
		return rcpt, err
	}

	rcpt.Status = model.StatusCommitted
	l.metrics.observeInstruction(ins.Kind, model.StatusCommitted)
	if rcpt.State != nil {
		l.metrics.observePool(*rcpt.State)
	}
	return rcpt, nil
}

func (l *Ledger) apply(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	switch ins.Kind {
	case model.KindCreateAccount:
		return l.createAccount(tx, ins)
	case model.KindCreateAsset:
		return l.createAsset(tx, ins, rcpt)
	case model.KindInstantiatePool:
		return l.instantiatePool(tx, ins, rcpt)
	case model.KindSwap:
		return l.swap(tx, ins, rcpt)
	case model.KindAddLiquidity:
		return l.addLiquidity(tx, ins, rcpt)
	case model.KindRemoveLiquidity:
		return l.removeLiquidity(tx, ins, rcpt)
	case model.KindTransfer:
		return l.transfer(tx, ins, rcpt)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInstruction, ins.Kind)
	}
}

func (l *Ledger) createAccount(tx *txn, ins model.Instruction) error {
	alias := strings.TrimSpace(ins.Account)
	if alias == "" {
		return fmt.Errorf("%w: account alias is required", ErrInvalidInstruction)
	}
	if _, ok := l.accounts[alias]; ok {
		return fmt.Errorf("%w: account %q", ErrDuplicateAlias, alias)
	}
	l.accounts[alias] = &account{alias: alias, vaults: make(map[common.Address]*resource.Vault)}
	tx.onRollback(func() {
		delete(l.accounts, alias)
	})
	return nil
}

func (l *Ledger) createAsset(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	acct, err := l.account(ins.Account)
	if err != nil {
		return err
	}
	spec := ins.Asset
	if spec == nil || strings.TrimSpace(spec.Symbol) == "" {
		return fmt.Errorf("%w: asset symbol is required", ErrInvalidInstruction)
	}
	if strings.Contains(spec.Symbol, "/") {
		return fmt.Errorf("%w: asset symbol %q may not contain '/'", ErrInvalidInstruction, spec.Symbol)
	}
	if _, ok := l.resources[spec.Symbol]; ok {
		return fmt.Errorf("%w: resource %q", ErrDuplicateAlias, spec.Symbol)
	}
	supply, err := amount.Parse(spec.Supply)
	if err != nil {
		return err
	}
	divisibility := resource.DivisibilityMaximum
	if spec.Divisibility != nil {
		divisibility = *spec.Divisibility
	}

	mgr, minted, err := resource.NewFungible(l.alloc, resource.Metadata{
		Name:         spec.Name,
		Symbol:       spec.Symbol,
		Divisibility: divisibility,
	}, supply, nil)
	if err != nil {
		return err
	}
	l.register(tx, spec.Symbol, mgr)

	if err := l.credit(tx, acct, minted); err != nil {
		return err
	}
	rcpt.Outputs = []model.AssetAmount{l.assetAmount(minted)}
	return nil
}

func (l *Ledger) instantiatePool(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	acct, err := l.account(ins.Account)
	if err != nil {
		return err
	}
	alias := strings.TrimSpace(ins.Pool)
	if alias == "" {
		return fmt.Errorf("%w: pool alias is required", ErrInvalidInstruction)
	}
	if _, ok := l.pools[alias]; ok {
		return fmt.Errorf("%w: pool %q", ErrDuplicateAlias, alias)
	}
	if _, ok := l.resources[UnitSymbol(alias)]; ok {
		return fmt.Errorf("%w: resource %q", ErrDuplicateAlias, UnitSymbol(alias))
	}
	if len(ins.Assets) != 2 {
		return fmt.Errorf("%w: instantiate_pool takes exactly two assets", ErrInvalidInstruction)
	}
	fee, err := amount.Parse(ins.Fee)
	if err != nil {
		return err
	}

	a, err := l.withdraw(tx, acct, ins.Assets[0])
	if err != nil {
		return err
	}
	b, err := l.withdraw(tx, acct, ins.Assets[1])
	if err != nil {
		return err
	}

	mgrA, err := l.resource(ins.Assets[0].Resource)
	if err != nil {
		return err
	}
	mgrB, err := l.resource(ins.Assets[1].Resource)
	if err != nil {
		return err
	}

	p, units, err := pool.Instantiate(l.alloc, a, b, fee,
		pool.WithDivisibility(mgrA.Metadata().Divisibility, mgrB.Metadata().Divisibility))
	if err != nil {
		return err
	}
	l.pools[alias] = p
	tx.onRollback(func() {
		delete(l.pools, alias)
	})
	l.register(tx, UnitSymbol(alias), p.Units())

	if err := l.credit(tx, acct, units); err != nil {
		return err
	}

	l.logger.Info("pool instantiated",
		zap.String("pool", alias),
		zap.String("address", p.Address().Hex()),
		zap.String("fee", amount.Format(fee)),
	)

	state := l.snapshot(alias, p, ins.Seq)
	rcpt.PoolAddress = state.Address
	rcpt.Inputs = []model.AssetAmount{l.assetAmount(a), l.assetAmount(b)}
	rcpt.Outputs = []model.AssetAmount{l.assetAmount(units)}
	rcpt.State = &state
	return nil
}

func (l *Ledger) swap(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	acct, p, err := l.poolCall(ins, 1)
	if err != nil {
		return err
	}
	input, err := l.withdraw(tx, acct, ins.Assets[0])
	if err != nil {
		return err
	}
	l.guardPool(tx, p)
	output, err := p.Swap(input)
	if err != nil {
		return err
	}
	if err := l.credit(tx, acct, output); err != nil {
		return err
	}

	state := l.snapshot(ins.Pool, p, ins.Seq)
	rcpt.PoolAddress = state.Address
	rcpt.Inputs = []model.AssetAmount{l.assetAmount(input)}
	rcpt.Outputs = []model.AssetAmount{l.assetAmount(output)}
	rcpt.State = &state
	return nil
}

func (l *Ledger) addLiquidity(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	acct, p, err := l.poolCall(ins, 2)
	if err != nil {
		return err
	}
	first, err := l.withdraw(tx, acct, ins.Assets[0])
	if err != nil {
		return err
	}
	second, err := l.withdraw(tx, acct, ins.Assets[1])
	if err != nil {
		return err
	}

	l.guardPool(tx, p)
	leftA, leftB, units, err := p.AddLiquidity(first, second)
	if err != nil {
		return err
	}
	outputs := []resource.Bucket{leftA, leftB, units}
	for _, b := range outputs {
		if err := l.credit(tx, acct, b); err != nil {
			return err
		}
	}

	state := l.snapshot(ins.Pool, p, ins.Seq)
	rcpt.PoolAddress = state.Address
	rcpt.Inputs = []model.AssetAmount{l.assetAmount(first), l.assetAmount(second)}
	for _, b := range outputs {
		rcpt.Outputs = append(rcpt.Outputs, l.assetAmount(b))
	}
	rcpt.State = &state
	return nil
}

func (l *Ledger) removeLiquidity(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	acct, p, err := l.poolCall(ins, 1)
	if err != nil {
		return err
	}
	units, err := l.withdraw(tx, acct, ins.Assets[0])
	if err != nil {
		return err
	}
	l.guardPool(tx, p)
	a, b, err := p.RemoveLiquidity(units)
	if err != nil {
		return err
	}
	if err := l.credit(tx, acct, a); err != nil {
		return err
	}
	if err := l.credit(tx, acct, b); err != nil {
		return err
	}

	state := l.snapshot(ins.Pool, p, ins.Seq)
	rcpt.PoolAddress = state.Address
	rcpt.Inputs = []model.AssetAmount{l.assetAmount(units)}
	rcpt.Outputs = []model.AssetAmount{l.assetAmount(a), l.assetAmount(b)}
	rcpt.State = &state
	return nil
}

func (l *Ledger) transfer(tx *txn, ins model.Instruction, rcpt *model.Receipt) error {
	from, err := l.account(ins.Account)
	if err != nil {
		return err
	}
	to, err := l.account(ins.To)
	if err != nil {
		return err
	}
	if len(ins.Assets) == 0 {
		return fmt.Errorf("%w: transfer needs at least one asset", ErrInvalidInstruction)
	}

	for _, a := range ins.Assets {
		b, err := l.withdraw(tx, from, a)
		if err != nil {
			return err
		}
		if err := l.credit(tx, to, b); err != nil {
			return err
		}
		rcpt.Inputs = append(rcpt.Inputs, l.assetAmount(b))
	}
	return nil
}

// poolCall resolves the caller and pool of a pool method and checks the asset count.
func (l *Ledger) poolCall(ins model.Instruction, assets int) (*account, *pool.Pool, error) {
	acct, err := l.account(ins.Account)
	if err != nil {
		return nil, nil, err
	}
	p, err := l.pool(ins.Pool)
	if err != nil {
		return nil, nil, err
	}
	if len(ins.Assets) != assets {
		return nil, nil, fmt.Errorf("%w: %s takes %d asset(s), got %d", ErrInvalidInstruction, ins.Kind, assets, len(ins.Assets))
	}
	return acct, p, nil
}

func (l *Ledger) register(tx *txn, symbol string, mgr *resource.Manager) {
	l.resources[symbol] = mgr
	l.symbols[mgr.Address()] = symbol
	tx.onRollback(func() {
		delete(l.resources, symbol)
		delete(l.symbols, mgr.Address())
	})
}
