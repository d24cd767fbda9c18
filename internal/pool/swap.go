package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"radiswap/internal/amount"
	"radiswap/internal/resource"
)

// QuoteSwap prices a swap of input against the given reserves:
//
//	effective = input * (1 - fee)
//	output    = reserveOut * effective / (reserveIn + effective)
//
// The full input is added to reserveIn by Swap, so the fee stays in the pool.
func QuoteSwap(reserveIn, reserveOut, input, fee math.LegacyDec) (math.LegacyDec, error) {
	if !amount.IsValid(reserveIn) || !amount.IsValid(reserveOut) || !amount.IsValid(input) {
		return math.LegacyDec{}, fmt.Errorf("%w: reserves and input must be non-negative", ErrInvalidInput)
	}
	if fee.IsNil() || fee.IsNegative() || fee.GT(amount.One()) {
		return math.LegacyDec{}, fmt.Errorf("%w: fee must be between 0 and 1", ErrInvalidInput)
	}

	keep, err := amount.Sub(amount.One(), fee)
	if err != nil {
		return math.LegacyDec{}, err
	}
	effective, err := amount.Mul(input, keep)
	if err != nil {
		return math.LegacyDec{}, err
	}
	denominator, err := amount.Add(reserveIn, effective)
	if err != nil {
		return math.LegacyDec{}, err
	}
	output, err := amount.MulQuo(reserveOut, effective, denominator)
	if err != nil {
		return math.LegacyDec{}, err
	}
	if output.GT(reserveOut) {
		return math.LegacyDec{}, fmt.Errorf("%w: output %s exceeds reserve %s", ErrArithmetic, amount.Format(output), amount.Format(reserveOut))
	}
	return output, nil
}

// Swap deposits input into its side of the pool and returns the priced
// amount of the other asset, truncated to that asset's divisibility.
func (p *Pool) Swap(input resource.Bucket) (resource.Bucket, error) {
	in, out, divOut, err := p.sides(input.Resource())
	if err != nil {
		return resource.Bucket{}, err
	}
	if input.IsEmpty() {
		return resource.Bucket{}, fmt.Errorf("%w: swap amount must be positive", ErrInvalidInput)
	}

	reserveIn, reserveOut := in.Amount(), out.Amount()
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return resource.Bucket{}, fmt.Errorf("%w: pool %s has no liquidity", ErrInvalidInput, p.address.Hex())
	}

	output, err := QuoteSwap(reserveIn, reserveOut, input.Amount(), p.fee)
	if err != nil {
		return resource.Bucket{}, err
	}
	output = resource.Truncate(output, divOut)
	if _, err := amount.Add(reserveIn, input.Amount()); err != nil {
		return resource.Bucket{}, err
	}

	before := p.State()
	if err := in.Put(input); err != nil {
		return resource.Bucket{}, p.abort(before, err)
	}
	paid, err := out.Take(output)
	if err != nil {
		return resource.Bucket{}, p.abort(before, err)
	}
	return paid, nil
}
