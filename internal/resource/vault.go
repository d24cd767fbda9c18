package resource

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"radiswap/internal/amount"
)

// Vault custodies a balance of one resource. The balance never goes negative.
type Vault struct {
	resource common.Address
	amount   math.LegacyDec
}

func NewVault(res common.Address) *Vault {
	return &Vault{resource: res, amount: amount.Zero()}
}

// Resource returns the identity of the custodied asset.
func (v *Vault) Resource() common.Address {
	return v.resource
}

// Amount returns the current balance.
func (v *Vault) Amount() math.LegacyDec {
	return v.amount
}

// Put deposits the whole bucket.
func (v *Vault) Put(b Bucket) error {
	if b.Resource() != v.resource {
		return fmt.Errorf("%w: vault holds %s, bucket holds %s", ErrResourceMismatch, v.resource.Hex(), b.Resource().Hex())
	}
	sum, err := amount.Add(v.amount, b.Amount())
	if err != nil {
		return err
	}
	v.amount = sum
	return nil
}

// Take withdraws amt into a new bucket.
func (v *Vault) Take(amt math.LegacyDec) (Bucket, error) {
	if !amount.IsValid(amt) {
		return Bucket{}, ErrNegativeAmount
	}
	if amt.GT(v.amount) {
		return Bucket{}, fmt.Errorf("%w: take %s from %s", ErrInsufficientBalance, amount.Format(amt), amount.Format(v.amount))
	}
	rest, err := amount.Sub(v.amount, amt)
	if err != nil {
		return Bucket{}, err
	}
	v.amount = rest
	return Bucket{resource: v.resource, amount: amt}, nil
}

// TakeAll empties the vault.
func (v *Vault) TakeAll() Bucket {
	b := Bucket{resource: v.resource, amount: v.amount}
	v.amount = amount.Zero()
	return b
}
