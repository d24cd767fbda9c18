// Package stats derives per-pool activity totals from committed receipts.
package stats

import (
	"fmt"
	"sort"

	"cosmossdk.io/math"

	"radiswap/internal/amount"
	"radiswap/internal/model"
)

// Accumulator holds running totals for one pool.
type Accumulator struct {
	Pool     string
	Address  string
	Swaps    uint64
	Adds     uint64
	Removes  uint64
	VolumeA  math.LegacyDec
	VolumeB  math.LegacyDec
	FeeA     math.LegacyDec
	FeeB     math.LegacyDec
	FirstSeq uint64
	LastSeq  uint64
}

func NewAccumulator(rcpt model.Receipt) *Accumulator {
	return &Accumulator{
		Pool:     rcpt.Pool,
		Address:  rcpt.PoolAddress,
		VolumeA:  amount.Zero(),
		VolumeB:  amount.Zero(),
		FeeA:     amount.Zero(),
		FeeB:     amount.Zero(),
		FirstSeq: rcpt.Seq,
		LastSeq:  rcpt.Seq,
	}
}

// AddReceipt folds a committed pool receipt into the totals.
func (a *Accumulator) AddReceipt(rcpt model.Receipt) error {
	if rcpt.Seq > a.LastSeq {
		a.LastSeq = rcpt.Seq
	}
	if rcpt.Seq < a.FirstSeq {
		a.FirstSeq = rcpt.Seq
	}

	switch rcpt.Kind {
	case model.KindSwap:
		return a.applySwap(rcpt)
	case model.KindAddLiquidity:
		a.Adds++
	case model.KindRemoveLiquidity:
		a.Removes++
	}
	return nil
}

func (a *Accumulator) applySwap(rcpt model.Receipt) error {
	if len(rcpt.Inputs) != 1 || rcpt.State == nil {
		return fmt.Errorf("swap receipt %d: expected one input and a pool state", rcpt.Seq)
	}
	in := rcpt.Inputs[0]
	input, err := amount.Parse(in.Amount)
	if err != nil {
		return fmt.Errorf("swap receipt %d: %w", rcpt.Seq, err)
	}
	feeRate, err := amount.Parse(rcpt.State.FeeRate)
	if err != nil {
		return fmt.Errorf("swap receipt %d: fee rate: %w", rcpt.Seq, err)
	}
	fee, err := amount.Mul(input, feeRate)
	if err != nil {
		return err
	}

	switch in.Resource {
	case rcpt.State.ResourceA:
		if a.VolumeA, err = amount.Add(a.VolumeA, input); err != nil {
			return err
		}
		if a.FeeA, err = amount.Add(a.FeeA, fee); err != nil {
			return err
		}
	case rcpt.State.ResourceB:
		if a.VolumeB, err = amount.Add(a.VolumeB, input); err != nil {
			return err
		}
		if a.FeeB, err = amount.Add(a.FeeB, fee); err != nil {
			return err
		}
	default:
		return fmt.Errorf("swap receipt %d: input %s is not traded by %s", rcpt.Seq, in.Resource, rcpt.Pool)
	}

	a.Swaps++
	return nil
}

func (a *Accumulator) Stats() model.PoolStats {
	return model.PoolStats{
		Pool:     a.Pool,
		Address:  a.Address,
		Swaps:    a.Swaps,
		Adds:     a.Adds,
		Removes:  a.Removes,
		VolumeA:  amount.Format(a.VolumeA),
		VolumeB:  amount.Format(a.VolumeB),
		FeeA:     amount.Format(a.FeeA),
		FeeB:     amount.Format(a.FeeB),
		FirstSeq: a.FirstSeq,
		LastSeq:  a.LastSeq,
	}
}

// Collector keeps one Accumulator per pool.
type Collector struct {
	accumulators map[string]*Accumulator
}

func NewCollector() *Collector {
	return &Collector{accumulators: make(map[string]*Accumulator)}
}

// Add ignores rejected receipts and receipts that did not touch a pool.
func (c *Collector) Add(rcpt model.Receipt) error {
	if !rcpt.Committed() || rcpt.State == nil || rcpt.Pool == "" {
		return nil
	}
	acc := c.accumulators[rcpt.Pool]
	if acc == nil {
		acc = NewAccumulator(rcpt)
		c.accumulators[rcpt.Pool] = acc
	}
	return acc.AddReceipt(rcpt)
}

// Stats returns totals for every pool seen, ordered by pool alias.
func (c *Collector) Stats() []model.PoolStats {
	keys := make([]string, 0, len(c.accumulators))
	for k := range c.accumulators {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.PoolStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.accumulators[k].Stats())
	}
	return out
}
