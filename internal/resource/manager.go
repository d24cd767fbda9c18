package resource

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"radiswap/internal/amount"
)

// DivisibilityMaximum allows every fractional digit an amount can carry.
const DivisibilityMaximum uint8 = amount.Precision

// DivisibilityNone allows whole units only.
const DivisibilityNone uint8 = 0

// Metadata describes a fungible resource.
type Metadata struct {
	Name         string
	Symbol       string
	Divisibility uint8
}

// Badge is an authority handle. A manager created with a badge only mints
// and burns when presented with that same badge.
type Badge struct {
	address common.Address
}

func NewBadge(alloc Allocator) *Badge {
	return &Badge{address: alloc.Next(KindBadge)}
}

func (b *Badge) Address() common.Address {
	return b.address
}

// Manager issues a fungible resource and tracks its total supply.
type Manager struct {
	address common.Address
	meta    Metadata
	minter  *Badge
	supply  math.LegacyDec
}

// NewFungible creates a resource with an initial supply returned as a bucket.
// A nil minter makes the supply fixed.
func NewFungible(alloc Allocator, meta Metadata, initialSupply math.LegacyDec, minter *Badge) (*Manager, Bucket, error) {
	if meta.Divisibility > DivisibilityMaximum {
		return nil, Bucket{}, fmt.Errorf("%w: divisibility %d", ErrInvalidDivisibility, meta.Divisibility)
	}
	if !amount.IsValid(initialSupply) {
		return nil, Bucket{}, fmt.Errorf("%w: initial supply", ErrNegativeAmount)
	}
	if err := checkDivisibility(initialSupply, meta.Divisibility); err != nil {
		return nil, Bucket{}, err
	}

	m := &Manager{
		address: alloc.Next(KindResource),
		meta:    meta,
		minter:  minter,
		supply:  initialSupply,
	}
	return m, Bucket{resource: m.address, amount: initialSupply}, nil
}

func (m *Manager) Address() common.Address {
	return m.address
}

func (m *Manager) Metadata() Metadata {
	return m.meta
}

// TotalSupply returns the outstanding supply.
func (m *Manager) TotalSupply() math.LegacyDec {
	return m.supply
}

// Mint issues amt new units. Requires the minter badge.
func (m *Manager) Mint(auth *Badge, amt math.LegacyDec) (Bucket, error) {
	if err := m.authorize(auth); err != nil {
		return Bucket{}, err
	}
	if !amount.IsValid(amt) {
		return Bucket{}, ErrNegativeAmount
	}
	if err := checkDivisibility(amt, m.meta.Divisibility); err != nil {
		return Bucket{}, err
	}
	supply, err := amount.Add(m.supply, amt)
	if err != nil {
		return Bucket{}, err
	}
	m.supply = supply
	return Bucket{resource: m.address, amount: amt}, nil
}

// Burn destroys the bucket. Requires the minter badge.
func (m *Manager) Burn(auth *Badge, b Bucket) error {
	if err := m.authorize(auth); err != nil {
		return err
	}
	if b.Resource() != m.address {
		return fmt.Errorf("%w: burn %s with manager of %s", ErrResourceMismatch, b.Resource().Hex(), m.address.Hex())
	}
	if b.Amount().GT(m.supply) {
		return fmt.Errorf("%w: burn exceeds supply", ErrInsufficientBalance)
	}
	supply, err := amount.Sub(m.supply, b.Amount())
	if err != nil {
		return err
	}
	m.supply = supply
	return nil
}

// CheckAmount validates amt against the resource divisibility.
func (m *Manager) CheckAmount(amt math.LegacyDec) error {
	return checkDivisibility(amt, m.meta.Divisibility)
}

func (m *Manager) authorize(auth *Badge) error {
	if m.minter == nil || auth == nil || auth.address != m.minter.address {
		return fmt.Errorf("%w: %s", ErrUnauthorized, m.address.Hex())
	}
	return nil
}

// Truncate drops the digits of a non-negative amt beyond divisibility.
func Truncate(amt math.LegacyDec, divisibility uint8) math.LegacyDec {
	if divisibility >= DivisibilityMaximum || amt.IsNil() {
		return amt
	}
	unit := divisibilityUnit(divisibility)
	raw := amt.BigInt()
	raw.Sub(raw, new(big.Int).Rem(raw, unit))
	return math.LegacyNewDecFromBigIntWithPrec(raw, amount.Precision)
}

func checkDivisibility(amt math.LegacyDec, divisibility uint8) error {
	if divisibility >= DivisibilityMaximum {
		return nil
	}
	if new(big.Int).Rem(amt.BigInt(), divisibilityUnit(divisibility)).Sign() != 0 {
		return fmt.Errorf("%w: %s with divisibility %d", ErrInvalidDivisibility, amount.Format(amt), divisibility)
	}
	return nil
}

// divisibilityUnit is the smallest scaled step allowed at divisibility.
func divisibilityUnit(divisibility uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(DivisibilityMaximum-divisibility)), nil)
}
