package pool

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiswap/internal/amount"
	"radiswap/internal/resource"
)

type fixture struct {
	alloc *resource.SeededAllocator
	a     common.Address
	b     common.Address
	c     common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	alloc := resource.NewSeededAllocator(t.Name())
	f := &fixture{alloc: alloc}
	f.a = f.mintResource(t, "A")
	f.b = f.mintResource(t, "B")
	f.c = f.mintResource(t, "C")
	return f
}

func (f *fixture) mintResource(t *testing.T, symbol string) common.Address {
	t.Helper()
	m, _, err := resource.NewFungible(f.alloc, resource.Metadata{Symbol: symbol, Divisibility: resource.DivisibilityMaximum}, amount.FromInt64(1_000_000), nil)
	require.NoError(t, err)
	return m.Address()
}

func bucket(t *testing.T, res common.Address, v string) resource.Bucket {
	t.Helper()
	b, err := resource.NewBucket(res, amount.MustParse(v))
	require.NoError(t, err)
	return b
}

func (f *fixture) pool(t *testing.T, a, b, fee string) (*Pool, resource.Bucket) {
	t.Helper()
	p, units, err := Instantiate(f.alloc, bucket(t, f.a, a), bucket(t, f.b, b), amount.MustParse(fee))
	require.NoError(t, err)
	return p, units
}

func assertAmount(t *testing.T, want string, got math.LegacyDec) {
	t.Helper()
	assert.Equal(t, want, amount.Format(got))
}

func assertReserves(t *testing.T, p *Pool, wantA, wantB string) {
	t.Helper()
	ra, rb := p.Reserves()
	assertAmount(t, wantA, ra)
	assertAmount(t, wantB, rb)
}

func TestInstantiate(t *testing.T) {
	f := newFixture(t)
	p, units := f.pool(t, "1000", "1000", "0.003")

	assert.Equal(t, p.UnitResource(), units.Resource())
	assertAmount(t, "100", units.Amount())
	assertAmount(t, "100", p.TotalUnits())
	assertReserves(t, p, "1000", "1000")
	assert.Equal(t, f.a, p.ResourceA())
	assert.Equal(t, f.b, p.ResourceB())
	assert.NotEqual(t, p.Address(), p.UnitResource())
	assert.Equal(t, "UNIT", p.Units().Metadata().Symbol)

	s := p.State()
	assert.Equal(t, p.Address(), s.Address)
	assertAmount(t, "0.003", s.FeeRate)
}

func TestInstantiateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		a, b resource.Bucket
		fee  string
	}{
		{"empty a", resource.EmptyBucket(f.a), bucket(t, f.b, "1"), "0"},
		{"empty b", bucket(t, f.a, "1"), resource.EmptyBucket(f.b), "0"},
		{"same asset", bucket(t, f.a, "1"), bucket(t, f.a, "1"), "0"},
		{"negative fee", bucket(t, f.a, "1"), bucket(t, f.b, "1"), "-0.1"},
		{"fee above one", bucket(t, f.a, "1"), bucket(t, f.b, "1"), "1.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Instantiate(f.alloc, tc.a, tc.b, amount.MustParse(tc.fee))
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSwapScenario(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	out, err := p.Swap(bucket(t, f.a, "100"))
	require.NoError(t, err)
	assert.Equal(t, f.b, out.Resource())
	assertAmount(t, "90.661089388014913158", out.Amount())
	assertReserves(t, p, "1100", "909.338910611985086842")
	assertAmount(t, "100", p.TotalUnits())

	back, err := p.Swap(bucket(t, f.b, "50"))
	require.NoError(t, err)
	assert.Equal(t, f.a, back.Resource())
	assertAmount(t, "57.168092117551672048", back.Amount())
	assertReserves(t, p, "1042.831907882448327952", "959.338910611985086842")
}

func TestSwapProductNeverDecreases(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	ra, rb := p.Reserves()
	k := ra.Mul(rb)
	for _, in := range []resource.Bucket{
		bucket(t, f.a, "100"),
		bucket(t, f.b, "0.000000000000000001"),
		bucket(t, f.b, "12345.678"),
		bucket(t, f.a, "3"),
	} {
		_, err := p.Swap(in)
		require.NoError(t, err)
		ra, rb = p.Reserves()
		next := ra.Mul(rb)
		assert.True(t, next.GTE(k), "product fell from %s to %s", k, next)
		k = next
	}
}

func TestSwapWithoutFeeKeepsProduct(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "100", "100", "0")

	out, err := p.Swap(bucket(t, f.a, "100"))
	require.NoError(t, err)
	assertAmount(t, "50", out.Amount())
	assertReserves(t, p, "200", "50")
}

func TestSwapFullFeeReturnsNothing(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "100", "100", "1")

	out, err := p.Swap(bucket(t, f.a, "10"))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
	assertReserves(t, p, "110", "100")
}

func TestSwapErrorsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	_, err := p.Swap(bucket(t, f.c, "10"))
	require.ErrorIs(t, err, ErrUnsupportedAsset)
	_, err = p.Swap(resource.EmptyBucket(f.a))
	require.ErrorIs(t, err, ErrInvalidInput)

	assertReserves(t, p, "1000", "1000")
}

func TestQuoteSwap(t *testing.T) {
	out, err := QuoteSwap(amount.MustParse("1000"), amount.MustParse("1000"), amount.MustParse("100"), amount.MustParse("0.003"))
	require.NoError(t, err)
	assertAmount(t, "90.661089388014913158", out)

	_, err = QuoteSwap(amount.MustParse("1000"), amount.MustParse("1000"), amount.MustParse("100"), amount.MustParse("2"))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = QuoteSwap(amount.MustParse("1000"), amount.MustParse("1000"), amount.MustParse("-1"), amount.MustParse("0"))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = QuoteSwap(amount.Zero(), amount.MustParse("1000"), amount.Zero(), amount.Zero())
	require.ErrorIs(t, err, ErrArithmetic)
}

func TestAddLiquidityLimitedByB(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	leftA, leftB, units, err := p.AddLiquidity(bucket(t, f.a, "100"), bucket(t, f.b, "50"))
	require.NoError(t, err)
	assertAmount(t, "50", leftA.Amount())
	assert.True(t, leftB.IsEmpty())
	assertAmount(t, "5", units.Amount())
	assert.Equal(t, p.UnitResource(), units.Resource())
	assertReserves(t, p, "1050", "1050")
	assertAmount(t, "105", p.TotalUnits())
}

func TestAddLiquidityLimitedByA(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	// Deposits given B first still come back in A, B order.
	leftA, leftB, units, err := p.AddLiquidity(bucket(t, f.b, "20"), bucket(t, f.a, "10"))
	require.NoError(t, err)
	assert.Equal(t, f.a, leftA.Resource())
	assert.Equal(t, f.b, leftB.Resource())
	assert.True(t, leftA.IsEmpty())
	assertAmount(t, "10", leftB.Amount())
	assertAmount(t, "1", units.Amount())
	assertReserves(t, p, "1010", "1010")
}

func TestAddLiquidityTruncatesAcceptedAmount(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "200", "300", "0")

	leftA, leftB, units, err := p.AddLiquidity(bucket(t, f.a, "100"), bucket(t, f.b, "100"))
	require.NoError(t, err)
	assertAmount(t, "33.333333333333333334", leftA.Amount())
	assert.True(t, leftB.IsEmpty())
	assertAmount(t, "33.333333333333333333", units.Amount())
	assertReserves(t, p, "266.666666666666666666", "400")

	// Ratio never moves in the depositor's favour: 266.66.../400 <= 200/300.
	ra, rb := p.Reserves()
	assert.LessOrEqual(t, amount.CompareRatios(ra, rb, amount.MustParse("200"), amount.MustParse("300")), 0)
}

func TestAddLiquidityRejectsForeignAssets(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	_, _, _, err := p.AddLiquidity(bucket(t, f.a, "10"), bucket(t, f.c, "10"))
	require.ErrorIs(t, err, ErrUnsupportedAsset)
	_, _, _, err = p.AddLiquidity(bucket(t, f.a, "10"), bucket(t, f.a, "10"))
	require.ErrorIs(t, err, ErrUnsupportedAsset)

	assertReserves(t, p, "1000", "1000")
	assertAmount(t, "100", p.TotalUnits())
}

func TestRemoveLiquidityProportional(t *testing.T) {
	f := newFixture(t)
	p, units := f.pool(t, "1000", "1000", "0.003")

	part, rest, err := units.Split(amount.MustParse("25"))
	require.NoError(t, err)

	a, b, err := p.RemoveLiquidity(part)
	require.NoError(t, err)
	assertAmount(t, "250", a.Amount())
	assertAmount(t, "250", b.Amount())
	assertReserves(t, p, "750", "750")
	assertAmount(t, "75", p.TotalUnits())

	a, b, err = p.RemoveLiquidity(rest)
	require.NoError(t, err)
	assertAmount(t, "750", a.Amount())
	assertAmount(t, "750", b.Amount())
	assertReserves(t, p, "0", "0")
	assert.True(t, p.TotalUnits().IsZero())
}

func TestRemoveLiquidityErrors(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")

	_, _, err := p.RemoveLiquidity(bucket(t, f.a, "10"))
	require.ErrorIs(t, err, ErrWrongToken)
	_, _, err = p.RemoveLiquidity(resource.EmptyBucket(p.UnitResource()))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = p.RemoveLiquidity(bucket(t, p.UnitResource(), "100.1"))
	require.ErrorIs(t, err, ErrInvalidInput)

	// Units of another pool are a wrong token too.
	other, otherUnits := f.pool(t, "5", "5", "0")
	_, _, err = p.RemoveLiquidity(otherUnits)
	require.ErrorIs(t, err, ErrWrongToken)
	assertReserves(t, other, "5", "5")

	assertReserves(t, p, "1000", "1000")
	assertAmount(t, "100", p.TotalUnits())
}

func TestRoundTripNeverProfits(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "1000", "1000", "0.003")
	_, err := p.Swap(bucket(t, f.a, "100"))
	require.NoError(t, err)

	leftA, leftB, units, err := p.AddLiquidity(bucket(t, f.a, "7"), bucket(t, f.b, "7"))
	require.NoError(t, err)
	a, b, err := p.RemoveLiquidity(units)
	require.NoError(t, err)

	// Only truncation dust may be lost: never more than 100 units of 1e-18.
	dust := amount.MustParse("0.0000000000000001")
	for name, got := range map[string][2]math.LegacyDec{
		"A": {a.Amount(), leftA.Amount()},
		"B": {b.Amount(), leftB.Amount()},
	} {
		total, err := amount.Add(got[0], got[1])
		require.NoError(t, err)
		shortfall, err := amount.Sub(amount.MustParse("7"), total)
		require.NoError(t, err)
		assert.False(t, shortfall.IsNegative(), "got back %s %s", amount.Format(total), name)
		assert.True(t, shortfall.LTE(dust), "lost %s %s", amount.Format(shortfall), name)
	}
}

func TestDrainedPoolReseeds(t *testing.T) {
	f := newFixture(t)
	p, units := f.pool(t, "1000", "1000", "0.003")
	_, _, err := p.RemoveLiquidity(units)
	require.NoError(t, err)

	_, err = p.Swap(bucket(t, f.a, "1"))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, _, _, err = p.AddLiquidity(bucket(t, f.a, "5"), resource.EmptyBucket(f.b))
	require.ErrorIs(t, err, ErrInvalidInput)

	leftA, leftB, fresh, err := p.AddLiquidity(bucket(t, f.a, "5"), bucket(t, f.b, "10"))
	require.NoError(t, err)
	assert.True(t, leftA.IsEmpty())
	assert.True(t, leftB.IsEmpty())
	assertAmount(t, "100", fresh.Amount())
	assertReserves(t, p, "5", "10")
}

func TestUnitsGrowWithReserves(t *testing.T) {
	f := newFixture(t)
	p, first := f.pool(t, "100", "100", "0.01")

	for i := 0; i < 5; i++ {
		_, err := p.Swap(bucket(t, f.a, "10"))
		require.NoError(t, err)
		_, err = p.Swap(bucket(t, f.b, "10"))
		require.NoError(t, err)
	}

	// Fees accrue to existing holders, so a late depositor gets fewer units per A.
	_, _, late, err := p.AddLiquidity(bucket(t, f.a, "100"), bucket(t, f.b, "100"))
	require.NoError(t, err)
	assert.True(t, late.Amount().LT(first.Amount()), "late units %s", amount.Format(late.Amount()))
}

// maxDeposit is the largest amount whose mint against a 1e-18 reserve still
// fits, so that adding it to the outstanding supply overflows.
func maxDeposit() math.LegacyDec {
	raw := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	raw.Quo(raw, new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil))
	return math.LegacyNewDecFromBigIntWithPrec(raw, amount.Precision)
}

func TestAddLiquidityOverflowLeavesPoolUntouched(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pool(t, "0.000000000000000001", "0.000000000000000001", "0")
	before := p.State()

	dep := maxDeposit()
	a, err := resource.NewBucket(f.a, dep)
	require.NoError(t, err)
	b, err := resource.NewBucket(f.b, dep)
	require.NoError(t, err)

	_, _, _, err = p.AddLiquidity(a, b)
	require.ErrorIs(t, err, ErrArithmetic)
	assert.Equal(t, before, p.State())
	assertReserves(t, p, "0.000000000000000001", "0.000000000000000001")
	assertAmount(t, "100", p.TotalUnits())
}

func TestSwapOverflowLeavesPoolUntouched(t *testing.T) {
	f := newFixture(t)
	half := math.LegacyNewDecFromBigIntWithPrec(new(big.Int).Lsh(big.NewInt(1), 255), amount.Precision)
	a, err := resource.NewBucket(f.a, half)
	require.NoError(t, err)
	// A full fee prices the output at zero, so only the deposit can overflow.
	p, _, err := Instantiate(f.alloc, a, bucket(t, f.b, "1000"), amount.One())
	require.NoError(t, err)
	before := p.State()

	in, err := resource.NewBucket(f.a, half)
	require.NoError(t, err)
	_, err = p.Swap(in)
	require.ErrorIs(t, err, ErrArithmetic)
	assert.Equal(t, before, p.State())
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	p, units := f.pool(t, "1000", "1000", "0.003")
	start := p.State()

	_, err := p.Swap(bucket(t, f.a, "100"))
	require.NoError(t, err)
	_, _, _, err = p.AddLiquidity(bucket(t, f.a, "10"), bucket(t, f.b, "10"))
	require.NoError(t, err)
	require.NoError(t, p.Restore(start))
	assertReserves(t, p, "1000", "1000")
	assertAmount(t, "100", p.TotalUnits())

	part, _, err := units.Split(amount.MustParse("40"))
	require.NoError(t, err)
	_, _, err = p.RemoveLiquidity(part)
	require.NoError(t, err)
	assertAmount(t, "60", p.TotalUnits())
	require.NoError(t, p.Restore(start))
	assertReserves(t, p, "1000", "1000")
	assertAmount(t, "100", p.TotalUnits())

	other, _ := f.pool(t, "1", "1", "0")
	require.ErrorIs(t, other.Restore(start), ErrInvalidInput)
	assertReserves(t, other, "1", "1")
}

func TestPayoutsFollowDivisibility(t *testing.T) {
	f := newFixture(t)
	whole := func(t *testing.T, a, b string) *Pool {
		t.Helper()
		p, _, err := Instantiate(f.alloc, bucket(t, f.a, a), bucket(t, f.b, b), amount.MustParse("0.003"),
			WithDivisibility(resource.DivisibilityNone, resource.DivisibilityNone))
		require.NoError(t, err)
		return p
	}

	t.Run("swap keeps the remainder", func(t *testing.T) {
		p := whole(t, "1000", "1000")
		out, err := p.Swap(bucket(t, f.a, "100"))
		require.NoError(t, err)
		assertAmount(t, "90", out.Amount())
		assertReserves(t, p, "1100", "910")
	})

	t.Run("add limited by B", func(t *testing.T) {
		p := whole(t, "200", "300")
		leftA, leftB, units, err := p.AddLiquidity(bucket(t, f.a, "100"), bucket(t, f.b, "100"))
		require.NoError(t, err)
		assertAmount(t, "34", leftA.Amount())
		assert.True(t, leftB.IsEmpty())
		assertAmount(t, "33", units.Amount())
		assertReserves(t, p, "266", "400")
	})

	t.Run("add limited by A", func(t *testing.T) {
		p := whole(t, "300", "200")
		leftA, leftB, units, err := p.AddLiquidity(bucket(t, f.a, "100"), bucket(t, f.b, "100"))
		require.NoError(t, err)
		assertAmount(t, "1", leftA.Amount())
		assertAmount(t, "34", leftB.Amount())
		assertAmount(t, "33", units.Amount())
		assertReserves(t, p, "399", "266")
	})

	t.Run("remove", func(t *testing.T) {
		p, units, err := Instantiate(f.alloc, bucket(t, f.a, "1000"), bucket(t, f.b, "999"), amount.Zero(),
			WithDivisibility(resource.DivisibilityNone, resource.DivisibilityNone))
		require.NoError(t, err)
		half, _, err := units.Split(amount.MustParse("50"))
		require.NoError(t, err)
		a, b, err := p.RemoveLiquidity(half)
		require.NoError(t, err)
		assertAmount(t, "500", a.Amount())
		assertAmount(t, "499", b.Amount())
		assertReserves(t, p, "500", "500")
	})

	_, _, err := Instantiate(f.alloc, bucket(t, f.a, "1"), bucket(t, f.b, "1"), amount.Zero(), WithDivisibility(19, 0))
	require.ErrorIs(t, err, ErrInvalidInput)
}
