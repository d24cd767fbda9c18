package model

// Receipt statuses.
const (
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
)

// Receipt records the outcome of one instruction. Amounts are decimal strings.
type Receipt struct {
	TxID        string        `json:"tx_id"`
	Seq         uint64        `json:"seq"`
	Kind        string        `json:"kind"`
	Account     string        `json:"account,omitempty"`
	Pool        string        `json:"pool,omitempty"`
	PoolAddress string        `json:"pool_address,omitempty"`
	Inputs      []AssetAmount `json:"inputs,omitempty"`
	Outputs     []AssetAmount `json:"outputs,omitempty"`
	State       *PoolSnapshot `json:"state,omitempty"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	ExecutedAt  string        `json:"executed_at"`
}

// Committed reports whether the instruction took effect.
func (r Receipt) Committed() bool {
	return r.Status == StatusCommitted
}

// FailedInstruction is written for every rejected instruction.
type FailedInstruction struct {
	Seq         uint64      `json:"seq"`
	Kind        string      `json:"kind"`
	TxID        string      `json:"tx_id"`
	Error       string      `json:"error"`
	Instruction Instruction `json:"instruction"`
}
