package resource

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"radiswap/internal/amount"
)

// Bucket is a transient quantity of a single resource.
type Bucket struct {
	resource common.Address
	amount   math.LegacyDec
}

// NewBucket returns a bucket holding amt of res.
func NewBucket(res common.Address, amt math.LegacyDec) (Bucket, error) {
	if !amount.IsValid(amt) {
		return Bucket{}, fmt.Errorf("%w: bucket of %s", ErrNegativeAmount, res.Hex())
	}
	return Bucket{resource: res, amount: amt}, nil
}

// EmptyBucket returns a zero bucket of res.
func EmptyBucket(res common.Address) Bucket {
	return Bucket{resource: res, amount: amount.Zero()}
}

func (b Bucket) Resource() common.Address {
	return b.resource
}

func (b Bucket) Amount() math.LegacyDec {
	if b.amount.IsNil() {
		return amount.Zero()
	}
	return b.amount
}

func (b Bucket) IsEmpty() bool {
	return b.amount.IsNil() || b.amount.IsZero()
}

// Split divides the bucket into amt and the remainder.
func (b Bucket) Split(amt math.LegacyDec) (Bucket, Bucket, error) {
	if !amount.IsValid(amt) {
		return Bucket{}, Bucket{}, ErrNegativeAmount
	}
	if amt.GT(b.Amount()) {
		return Bucket{}, Bucket{}, fmt.Errorf("%w: split %s of %s", ErrInsufficientBalance, amount.Format(amt), amount.Format(b.Amount()))
	}
	rest, err := amount.Sub(b.Amount(), amt)
	if err != nil {
		return Bucket{}, Bucket{}, err
	}
	return Bucket{resource: b.resource, amount: amt}, Bucket{resource: b.resource, amount: rest}, nil
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s %s", amount.Format(b.Amount()), b.resource.Hex())
}
