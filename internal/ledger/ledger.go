// Package ledger hosts pools and accounts in process and executes
// instructions against them one at a time. Each instruction is a
// transaction: if any step fails, every balance change it made is undone and
// the receipt is marked rejected.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"radiswap/internal/amount"
	"radiswap/internal/model"
	"radiswap/internal/pool"
	"radiswap/internal/resource"
)

var (
	ErrUnknownAccount     = errors.New("unknown account")
	ErrUnknownResource    = errors.New("unknown resource")
	ErrUnknownPool        = errors.New("unknown pool")
	ErrDuplicateAlias     = errors.New("alias already in use")
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrInvalidInstruction = errors.New("invalid instruction")
)

// Options configures a Ledger.
type Options struct {
	// Seed makes component and resource addresses reproducible across replays.
	Seed       string
	Registerer prometheus.Registerer
	Logger     *zap.Logger
	Clock      func() time.Time
}

type account struct {
	alias  string
	vaults map[common.Address]*resource.Vault
}

// Ledger owns every account, resource and pool.
type Ledger struct {
	mu        sync.Mutex
	alloc     *resource.SeededAllocator
	accounts  map[string]*account
	resources map[string]*resource.Manager
	symbols   map[common.Address]string
	pools     map[string]*pool.Pool
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func New(opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		alloc:     resource.NewSeededAllocator(opts.Seed),
		accounts:  make(map[string]*account),
		resources: make(map[string]*resource.Manager),
		symbols:   make(map[common.Address]string),
		pools:     make(map[string]*pool.Pool),
		metrics:   NewMetrics(opts.Registerer),
		logger:    logger,
		now:       now,
	}
}

// UnitSymbol returns the symbol under which a pool's units are registered.
func UnitSymbol(poolAlias string) string {
	return poolAlias + "/" + pool.UnitMetadata.Symbol
}

// Balance returns what account holds of the resource registered as symbol.
func (l *Ledger) Balance(alias, symbol string) (math.LegacyDec, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.account(alias)
	if err != nil {
		return math.LegacyDec{}, err
	}
	mgr, err := l.resource(symbol)
	if err != nil {
		return math.LegacyDec{}, err
	}
	v, ok := acct.vaults[mgr.Address()]
	if !ok {
		return amount.Zero(), nil
	}
	return v.Amount(), nil
}

// Pool returns the current state of the pool registered under alias.
func (l *Ledger) Pool(alias string) (model.PoolSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.pool(alias)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	return l.snapshot(alias, p, 0), nil
}

// Pools returns every pool ordered by alias.
func (l *Ledger) Pools() []model.PoolSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	aliases := make([]string, 0, len(l.pools))
	for alias := range l.pools {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	out := make([]model.PoolSnapshot, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, l.snapshot(alias, l.pools[alias], 0))
	}
	return out
}

func (l *Ledger) account(alias string) (*account, error) {
	acct, ok := l.accounts[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAccount, alias)
	}
	return acct, nil
}

func (l *Ledger) resource(symbol string) (*resource.Manager, error) {
	mgr, ok := l.resources[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, symbol)
	}
	return mgr, nil
}

func (l *Ledger) pool(alias string) (*pool.Pool, error) {
	p, ok := l.pools[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, alias)
	}
	return p, nil
}

func (l *Ledger) symbol(addr common.Address) string {
	if s, ok := l.symbols[addr]; ok {
		return s
	}
	return addr.Hex()
}

func (l *Ledger) assetAmount(b resource.Bucket) model.AssetAmount {
	return model.AssetAmount{
		Resource: l.symbol(b.Resource()),
		Address:  b.Resource().Hex(),
		Amount:   amount.Format(b.Amount()),
	}
}

func (l *Ledger) snapshot(alias string, p *pool.Pool, seq uint64) model.PoolSnapshot {
	s := p.State()
	return model.PoolSnapshot{
		Alias:        alias,
		Address:      s.Address.Hex(),
		ResourceA:    l.symbol(s.ResourceA),
		ResourceB:    l.symbol(s.ResourceB),
		UnitResource: l.symbol(s.UnitResource),
		ReserveA:     amount.Format(s.ReserveA),
		ReserveB:     amount.Format(s.ReserveB),
		TotalUnits:   amount.Format(s.TotalUnits),
		FeeRate:      amount.Format(s.FeeRate),
		Seq:          seq,
	}
}
