package model

// TokenMeta captures ERC20 metadata read from chain.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// AuctionOutcome is what a live auction reports at the time of a preview.
type AuctionOutcome struct {
	Auction        string `json:"auction"`
	ClearingPrice  string `json:"clearing_price_q96"`
	CurrencyRaised string `json:"currency_raised"`
	EndBlock       uint64 `json:"end_block"`
	ObservedBlock  uint64 `json:"observed_block"`
	Ended          bool   `json:"ended"`
}

// PricePreview is the pool seeding a strategy would derive from an auction
// outcome if it validated now.
type PricePreview struct {
	Outcome          AuctionOutcome `json:"outcome"`
	Token            TokenMeta      `json:"token"`
	Currency         TokenMeta      `json:"currency"`
	Currency0        string         `json:"currency0"`
	Currency1        string         `json:"currency1"`
	SqrtPriceX96     string         `json:"sqrt_price_x96,omitempty"`
	Tick             int32          `json:"tick"`
	TokenAmount      string         `json:"token_amount,omitempty"`
	CurrencyAmount   string         `json:"currency_amount,omitempty"`
	LeftoverCurrency string         `json:"leftover_currency,omitempty"`
	Error            string         `json:"error,omitempty"`
}
