package model

// Instruction kinds accepted by the ledger.
const (
	KindCreateAccount   = "create_account"
	KindCreateAsset     = "create_asset"
	KindInstantiatePool = "instantiate_pool"
	KindSwap            = "swap"
	KindAddLiquidity    = "add_liquidity"
	KindRemoveLiquidity = "remove_liquidity"
	KindTransfer        = "transfer"
)

// AssetAmount is an amount of a resource referenced by symbol. Pool units are
// referenced as "<pool alias>/UNIT".
type AssetAmount struct {
	Resource string `json:"resource"`
	Address  string `json:"address,omitempty"`
	Amount   string `json:"amount"`
}

// Instruction is one line of a replay input file.
type Instruction struct {
	Seq     uint64        `json:"seq"`
	Kind    string        `json:"kind"`
	Account string        `json:"account,omitempty"`
	To      string        `json:"to,omitempty"`
	Pool    string        `json:"pool,omitempty"`
	Fee     string        `json:"fee,omitempty"`
	Assets  []AssetAmount `json:"assets,omitempty"`
	Asset   *AssetSpec    `json:"asset,omitempty"`
}

// AssetSpec describes a fixed-supply asset for create_asset.
type AssetSpec struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name,omitempty"`
	Divisibility *uint8 `json:"divisibility,omitempty"`
	Supply       string `json:"supply"`
}
