package model

// PoolSnapshot is the post-transaction state of a pool.
type PoolSnapshot struct {
	Alias        string `json:"alias"`
	Address      string `json:"address"`
	ResourceA    string `json:"resource_a"`
	ResourceB    string `json:"resource_b"`
	UnitResource string `json:"unit_resource"`
	ReserveA     string `json:"reserve_a"`
	ReserveB     string `json:"reserve_b"`
	TotalUnits   string `json:"total_units"`
	FeeRate      string `json:"fee_rate"`
	Seq          uint64 `json:"seq"`
}

// PoolStats summarises committed activity on a pool.
type PoolStats struct {
	Pool     string `json:"pool"`
	Address  string `json:"address"`
	Swaps    uint64 `json:"swaps"`
	Adds     uint64 `json:"adds"`
	Removes  uint64 `json:"removes"`
	VolumeA  string `json:"volume_a"`
	VolumeB  string `json:"volume_b"`
	FeeA     string `json:"fee_a"`
	FeeB     string `json:"fee_b"`
	FirstSeq uint64 `json:"first_seq"`
	LastSeq  uint64 `json:"last_seq"`
}
