package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"radiswap/internal/amount"
	"radiswap/internal/resource"
)

// AddLiquidity accepts as much of the two deposits as keeps the reserve ratio
// unchanged and mints units for the accepted share. The deposits may be given
// in either order; leftovers are returned in the pool's A, B order followed by
// the minted units.
func (p *Pool) AddLiquidity(first, second resource.Bucket) (resource.Bucket, resource.Bucket, resource.Bucket, error) {
	depositA, depositB, err := p.arrange(first, second)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, err
	}

	dm, dn := depositA.Amount(), depositB.Amount()
	m, n := p.Reserves()
	supply := p.units.TotalSupply()

	if supply.IsZero() && (dm.IsZero() || dn.IsZero()) {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: re-seeding a drained pool needs both assets", ErrInvalidInput)
	}

	acceptA, acceptB, err := acceptedAmounts(m, n, dm, dn, p.divA, p.divB)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, err
	}
	minted, err := unitsToMint(acceptA, acceptB, m, n, supply)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, err
	}

	// Every sum the mutations below produce must fit.
	if _, err := amount.Add(m, acceptA); err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, err
	}
	if _, err := amount.Add(n, acceptB); err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, err
	}
	if _, err := amount.Add(supply, minted); err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, err
	}

	takenA, leftA, err := depositA.Split(acceptA)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: %v", ErrArithmetic, err)
	}
	takenB, leftB, err := depositB.Split(acceptB)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: %v", ErrArithmetic, err)
	}

	before := p.State()
	if err := p.vaultA.Put(takenA); err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, p.abort(before, err)
	}
	if err := p.vaultB.Put(takenB); err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, p.abort(before, err)
	}
	units, err := p.units.Mint(p.minter, minted)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, resource.Bucket{}, p.abort(before, err)
	}
	return leftA, leftB, units, nil
}

// RemoveLiquidity burns the units and returns the matching share of both
// reserves, each truncated to its asset's divisibility.
func (p *Pool) RemoveLiquidity(units resource.Bucket) (resource.Bucket, resource.Bucket, error) {
	if units.Resource() != p.units.Address() {
		return resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: %s is not the unit of pool %s", ErrWrongToken, units.Resource().Hex(), p.address.Hex())
	}
	if units.IsEmpty() {
		return resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: no units to redeem", ErrInvalidInput)
	}

	supply := p.units.TotalSupply()
	if units.Amount().GT(supply) {
		return resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: redeeming more units than outstanding", ErrInvalidInput)
	}
	ra, rb := p.Reserves()

	// Shares use pre-burn supply and reserves.
	outA, err := amount.MulQuo(ra, units.Amount(), supply)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, err
	}
	outB, err := amount.MulQuo(rb, units.Amount(), supply)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, err
	}
	outA = resource.Truncate(outA, p.divA)
	outB = resource.Truncate(outB, p.divB)

	before := p.State()
	if err := p.units.Burn(p.minter, units); err != nil {
		return resource.Bucket{}, resource.Bucket{}, p.abort(before, err)
	}
	a, err := p.vaultA.Take(outA)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, p.abort(before, err)
	}
	b, err := p.vaultB.Take(outB)
	if err != nil {
		return resource.Bucket{}, resource.Bucket{}, p.abort(before, err)
	}
	return a, b, nil
}

// arrange orders two deposits as (A side, B side).
func (p *Pool) arrange(first, second resource.Bucket) (resource.Bucket, resource.Bucket, error) {
	ra, rb := p.ResourceA(), p.ResourceB()
	switch {
	case first.Resource() == ra && second.Resource() == rb:
		return first, second, nil
	case first.Resource() == rb && second.Resource() == ra:
		return second, first, nil
	default:
		return resource.Bucket{}, resource.Bucket{}, fmt.Errorf("%w: deposits %s and %s do not match pool %s", ErrUnsupportedAsset, first.Resource().Hex(), second.Resource().Hex(), p.address.Hex())
	}
}

// acceptedAmounts picks the largest part of (dm, dn) whose ratio matches the
// reserves (m, n), within the divisibility of each asset. Ratios are compared
// by cross-multiplication.
func acceptedAmounts(m, n, dm, dn math.LegacyDec, divA, divB uint8) (math.LegacyDec, math.LegacyDec, error) {
	if m.IsZero() || n.IsZero() {
		return dm, dn, nil
	}

	switch amount.CompareRatios(m, n, dm, dn) {
	case 0:
		return dm, dn, nil
	case -1:
		// Deposit carries more A per B than the pool: B is the limit.
		acceptA, err := amount.MulQuo(dn, m, n)
		if err != nil {
			return math.LegacyDec{}, math.LegacyDec{}, err
		}
		return resource.Truncate(amount.Min(acceptA, dm), divA), dn, nil
	default:
		acceptB, err := amount.MulQuo(dm, n, m)
		if err != nil {
			return math.LegacyDec{}, math.LegacyDec{}, err
		}
		acceptB = amount.Min(acceptB, dn)
		whole := resource.Truncate(acceptB, divB)
		if whole.Equal(acceptB) {
			return dm, acceptB, nil
		}
		// Units follow the A side, so A shrinks to match the truncated B.
		acceptA, err := amount.MulQuo(whole, m, n)
		if err != nil {
			return math.LegacyDec{}, math.LegacyDec{}, err
		}
		return resource.Truncate(amount.Min(acceptA, dm), divA), whole, nil
	}
}

func unitsToMint(acceptA, acceptB, m, n, supply math.LegacyDec) (math.LegacyDec, error) {
	switch {
	case supply.IsZero():
		return InitialUnits(), nil
	case m.IsPositive():
		return amount.MulQuo(acceptA, supply, m)
	case n.IsPositive():
		return amount.MulQuo(acceptB, supply, n)
	default:
		return math.LegacyDec{}, fmt.Errorf("%w: units outstanding against empty reserves", ErrArithmetic)
	}
}
