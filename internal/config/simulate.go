package config

import (
	"time"

	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command: a full launch
// run against the in-memory ledger.
type SimulateConfig struct {
	Variant     string
	TokenName   string
	TokenSymbol string
	Decimals    uint8
	// TotalSupply and the amounts below are in whole-token units.
	TotalSupply  string
	AuctionSplit string
	FloorPrice   string
	Bids         []string

	StartBlock        uint64
	AuctionStartBlock uint64
	AuctionEndBlock   uint64
	MigrationBlock    uint64
	SweepBlock        uint64
	BlockStep         uint64

	PoolFee          uint32
	TickSpacing      int32
	OneSidedToken    bool
	OneSidedCurrency bool
	ApproveMigration bool

	PollInterval time.Duration
	Checkpoint   string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string

	Storage StorageConfig
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, storageDefaults(map[string]interface{}{
		"variant":         "basic",
		"token-name":      "Launch Token",
		"token-symbol":    "LAUNCH",
		"decimals":        18,
		"total-supply":    "1000000",
		"auction-split":   "0.5",
		"floor-price":     "0.0001",
		"bids":            []string{"150@0.5", "100@0.3", "50@0.1"},
		"start-block":     uint64(90),
		"auction-start":   uint64(100),
		"auction-end":     uint64(200),
		"migration":       uint64(250),
		"sweep":           uint64(400),
		"block-step":      uint64(10),
		"pool-fee":        3000,
		"tick-spacing":    60,
		"poll-interval":   10 * time.Millisecond,
		"checkpoint":      "./data/checkpoint.json",
		"one-sided-token": true,
	}))
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Variant:           v.GetString("variant"),
		TokenName:         v.GetString("token-name"),
		TokenSymbol:       v.GetString("token-symbol"),
		Decimals:          uint8(v.GetUint("decimals")),
		TotalSupply:       v.GetString("total-supply"),
		AuctionSplit:      v.GetString("auction-split"),
		FloorPrice:        v.GetString("floor-price"),
		Bids:              getStringSlice(v, "bids"),
		StartBlock:        v.GetUint64("start-block"),
		AuctionStartBlock: v.GetUint64("auction-start"),
		AuctionEndBlock:   v.GetUint64("auction-end"),
		MigrationBlock:    v.GetUint64("migration"),
		SweepBlock:        v.GetUint64("sweep"),
		BlockStep:         v.GetUint64("block-step"),
		PoolFee:           v.GetUint32("pool-fee"),
		TickSpacing:       v.GetInt32("tick-spacing"),
		OneSidedToken:     v.GetBool("one-sided-token"),
		OneSidedCurrency:  v.GetBool("one-sided-currency"),
		ApproveMigration:  v.GetBool("approve-migration"),
		PollInterval:      v.GetDuration("poll-interval"),
		Checkpoint:        v.GetString("checkpoint"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
		Storage:           loadStorage(v),
	}
	return cfg, nil
}
