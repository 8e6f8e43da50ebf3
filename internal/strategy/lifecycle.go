package strategy

// Lifecycle is the state of a launch strategy.
type Lifecycle int

const (
	AwaitingTokens Lifecycle = iota
	AuctionActive
	PriceValidated
	Migrated
	Swept
)

func (l Lifecycle) String() string {
	switch l {
	case AwaitingTokens:
		return "awaiting_tokens"
	case AuctionActive:
		return "auction_active"
	case PriceValidated:
		return "price_validated"
	case Migrated:
		return "migrated"
	case Swept:
		return "swept"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (l Lifecycle) Terminal() bool {
	return l == Migrated || l == Swept
}
