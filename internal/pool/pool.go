// Package pool implements a two-asset constant-product liquidity pool with
// a fungible pool-unit token tracking each provider's share of the reserves.
//
// Every operation reads reserves and unit supply once at entry, computes all
// deltas from that snapshot, and only then mutates vaults and supply. A call
// that returns an error leaves the pool untouched. Amounts paid out of the
// reserves are truncated to the divisibility of their asset; the remainder
// stays in the pool.
package pool

import (
	"errors"
	"fmt"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"radiswap/internal/amount"
	"radiswap/internal/resource"
)

var (
	// ErrInvalidInput is returned for empty deposits, out-of-range fees and similar malformed calls.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedAsset is returned when a deposit is not one of the pool's two assets.
	ErrUnsupportedAsset = errors.New("unsupported asset")
	// ErrWrongToken is returned when redeeming a token that is not this pool's unit.
	ErrWrongToken = errors.New("wrong token")
	// ErrArithmetic is returned on overflow or an unguarded division by zero.
	ErrArithmetic = amount.ErrArithmetic
)

// initialUnits is issued on instantiation and whenever a drained pool is re-seeded.
const initialUnits = 100

// UnitMetadata describes every pool's unit token.
var UnitMetadata = resource.Metadata{
	Name:         "Pool unit",
	Symbol:       "UNIT",
	Divisibility: resource.DivisibilityMaximum,
}

// InitialUnits returns the fixed unit issuance of a fresh pool.
func InitialUnits() math.LegacyDec {
	return amount.FromInt64(initialUnits)
}

// Pool holds two reserves, an immutable fee rate and the unit issuer.
type Pool struct {
	address common.Address
	vaultA  *resource.Vault
	vaultB  *resource.Vault
	units   *resource.Manager
	minter  *resource.Badge
	fee     math.LegacyDec
	divA    uint8
	divB    uint8
}

// Option configures a pool at instantiation.
type Option func(*Pool)

// WithDivisibility sets the divisibility of the A and B assets. Both default
// to resource.DivisibilityMaximum.
func WithDivisibility(a, b uint8) Option {
	return func(p *Pool) {
		p.divA = a
		p.divB = b
	}
}

// Snapshot is a read-only view of pool state.
type Snapshot struct {
	Address      common.Address
	ResourceA    common.Address
	ResourceB    common.Address
	UnitResource common.Address
	ReserveA     math.LegacyDec
	ReserveB     math.LegacyDec
	TotalUnits   math.LegacyDec
	FeeRate      math.LegacyDec
}

// Instantiate seeds a new pool with both buckets and returns it together with
// the initial pool units. The pool is not published anywhere; that is the
// caller's job.
func Instantiate(alloc resource.Allocator, a, b resource.Bucket, fee math.LegacyDec, opts ...Option) (*Pool, resource.Bucket, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return nil, resource.Bucket{}, fmt.Errorf("%w: both seed deposits must be non-empty", ErrInvalidInput)
	}
	if a.Resource() == b.Resource() {
		return nil, resource.Bucket{}, fmt.Errorf("%w: seed deposits must be two different assets", ErrInvalidInput)
	}
	if fee.IsNil() || fee.IsNegative() || fee.GT(amount.One()) {
		return nil, resource.Bucket{}, fmt.Errorf("%w: fee must be between 0 and 1", ErrInvalidInput)
	}
	cfg := Pool{divA: resource.DivisibilityMaximum, divB: resource.DivisibilityMaximum}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.divA > resource.DivisibilityMaximum || cfg.divB > resource.DivisibilityMaximum {
		return nil, resource.Bucket{}, fmt.Errorf("%w: divisibility %d/%d", ErrInvalidInput, cfg.divA, cfg.divB)
	}

	minter := resource.NewBadge(alloc)
	units, issued, err := resource.NewFungible(alloc, UnitMetadata, InitialUnits(), minter)
	if err != nil {
		return nil, resource.Bucket{}, err
	}

	p := &Pool{
		address: alloc.Next(resource.KindComponent),
		vaultA:  resource.NewVault(a.Resource()),
		vaultB:  resource.NewVault(b.Resource()),
		units:   units,
		minter:  minter,
		fee:     fee,
		divA:    cfg.divA,
		divB:    cfg.divB,
	}
	if err := p.vaultA.Put(a); err != nil {
		return nil, resource.Bucket{}, err
	}
	if err := p.vaultB.Put(b); err != nil {
		return nil, resource.Bucket{}, err
	}
	return p, issued, nil
}

// Address is the component address of the pool.
func (p *Pool) Address() common.Address {
	return p.address
}

// ResourceA is the asset held in the first reserve.
func (p *Pool) ResourceA() common.Address {
	return p.vaultA.Resource()
}

// ResourceB is the asset held in the second reserve.
func (p *Pool) ResourceB() common.Address {
	return p.vaultB.Resource()
}

// UnitResource is the identity of the pool-unit token.
func (p *Pool) UnitResource() common.Address {
	return p.units.Address()
}

// FeeRate is the fraction of each swap input kept by the pool.
func (p *Pool) FeeRate() math.LegacyDec {
	return p.fee
}

// Reserves returns the A and B balances.
func (p *Pool) Reserves() (math.LegacyDec, math.LegacyDec) {
	return p.vaultA.Amount(), p.vaultB.Amount()
}

// TotalUnits returns the outstanding pool-unit supply.
func (p *Pool) TotalUnits() math.LegacyDec {
	return p.units.TotalSupply()
}

// Units exposes the unit manager for read-only metadata lookups.
func (p *Pool) Units() *resource.Manager {
	return p.units
}

// State captures the pool at this moment.
func (p *Pool) State() Snapshot {
	ra, rb := p.Reserves()
	return Snapshot{
		Address:      p.address,
		ResourceA:    p.ResourceA(),
		ResourceB:    p.ResourceB(),
		UnitResource: p.UnitResource(),
		ReserveA:     ra,
		ReserveB:     rb,
		TotalUnits:   p.TotalUnits(),
		FeeRate:      p.fee,
	}
}

// Restore rewinds reserves and unit supply to s, which must have been taken
// from p. It undoes calls whose enclosing transaction failed later on.
func (p *Pool) Restore(s Snapshot) error {
	if s.Address != p.address || s.UnitResource != p.units.Address() {
		return fmt.Errorf("%w: snapshot of %s restored into %s", ErrInvalidInput, s.Address.Hex(), p.address.Hex())
	}
	if err := resetVault(p.vaultA, s.ReserveA); err != nil {
		return err
	}
	if err := resetVault(p.vaultB, s.ReserveB); err != nil {
		return err
	}

	supply := p.units.TotalSupply()
	switch {
	case supply.GT(s.TotalUnits):
		extra, err := amount.Sub(supply, s.TotalUnits)
		if err != nil {
			return err
		}
		b, err := resource.NewBucket(p.units.Address(), extra)
		if err != nil {
			return err
		}
		return p.units.Burn(p.minter, b)
	case supply.LT(s.TotalUnits):
		missing, err := amount.Sub(s.TotalUnits, supply)
		if err != nil {
			return err
		}
		_, err = p.units.Mint(p.minter, missing)
		return err
	}
	return nil
}

// abort restores before after a failed mutation and returns err.
func (p *Pool) abort(before Snapshot, err error) error {
	if rerr := p.Restore(before); rerr != nil {
		return fmt.Errorf("%w (restore: %v)", err, rerr)
	}
	return err
}

func resetVault(v *resource.Vault, amt math.LegacyDec) error {
	b, err := resource.NewBucket(v.Resource(), amt)
	if err != nil {
		return err
	}
	v.TakeAll()
	return v.Put(b)
}

// sides returns (input vault, output vault, output divisibility) for a
// deposit of res.
func (p *Pool) sides(res common.Address) (*resource.Vault, *resource.Vault, uint8, error) {
	switch res {
	case p.vaultA.Resource():
		return p.vaultA, p.vaultB, p.divB, nil
	case p.vaultB.Resource():
		return p.vaultB, p.vaultA, p.divA, nil
	default:
		return nil, nil, 0, fmt.Errorf("%w: %s is not traded by pool %s", ErrUnsupportedAsset, res.Hex(), p.address.Hex())
	}
}
