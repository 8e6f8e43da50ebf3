package model

// StrategyRecord is the persisted snapshot of a launch strategy. Amounts are
// decimal strings and addresses are checksummed hex.
type StrategyRecord struct {
	Address           string `json:"address"`
	Variant           string `json:"variant"`
	Lifecycle         string `json:"lifecycle"`
	Token             string `json:"token"`
	PoolToken         string `json:"pool_token"`
	Currency          string `json:"currency"`
	TotalSupply       string `json:"total_supply"`
	AuctionSupply     string `json:"auction_supply"`
	ReserveSupply     string `json:"reserve_supply"`
	MigrationBlock    uint64 `json:"migration_block"`
	SweepBlock        uint64 `json:"sweep_block"`
	PoolFee           uint32 `json:"pool_fee"`
	PoolTickSpacing   int32  `json:"pool_tick_spacing"`
	PositionRecipient string `json:"position_recipient"`
	Operator          string `json:"operator"`
	Auction           string `json:"auction,omitempty"`

	InitialSqrtPriceX96   string   `json:"initial_sqrt_price_x96,omitempty"`
	InitialTokenAmount    string   `json:"initial_token_amount,omitempty"`
	InitialCurrencyAmount string   `json:"initial_currency_amount,omitempty"`
	LeftoverCurrency      string   `json:"leftover_currency,omitempty"`
	PositionIDs           []uint64 `json:"position_ids,omitempty"`
	MigrationApproved     bool     `json:"migration_approved"`

	UpdatedBlock uint64 `json:"updated_block"`
	UpdatedAt    string `json:"updated_at"`
}
