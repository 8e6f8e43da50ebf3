package strategy

import (
	"errors"

	"liquidityLauncher/internal/distribution"
	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/pricing"
)

// Configuration errors.
var (
	ErrInvalidToken             = errors.New("invalid token")
	ErrInvalidPoolFee           = errors.New("invalid pool fee")
	ErrInvalidTickSpacing       = errors.New("invalid pool tick spacing")
	ErrInvalidPositionRecipient = errors.New("invalid position recipient")
	ErrInvalidOperator          = errors.New("invalid operator")
	ErrInvalidSweepBlock        = errors.New("sweep block must be after migration block")
	ErrInvalidEndBlock          = errors.New("auction must end before migration block")
	ErrInvalidGovernance        = errors.New("invalid governance address")
	ErrInvalidVirtualToken      = errors.New("invalid virtual token")
	ErrMissingCollaborator      = errors.New("missing collaborator")
	ErrUnknownVariant           = errors.New("unknown strategy variant")
)

// Precondition errors.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyValidated       = errors.New("already validated")
	ErrNotValidated           = errors.New("price not validated")
	ErrAlreadyMigrated        = errors.New("already migrated")
	ErrAlreadySwept           = errors.New("already swept")
	ErrTooEarly               = errors.New("too early")
	ErrInsufficientTokens     = errors.New("insufficient tokens received")
	ErrAuctionAlreadyDeployed = errors.New("auction already deployed")
	ErrMigrationNotApproved   = errors.New("migration not approved")
	ErrNotGovernance          = errors.New("caller is not governance")
	ErrInvalidInitializer     = errors.New("invalid pool initializer")
)

// External call errors.
var (
	ErrPoolAlreadyInitialized = pool.ErrPoolAlreadyInitialized
	ErrAuctionCallFailed      = errors.New("auction call failed")
	ErrAuctionDeployFailed    = errors.New("auction deployment failed")
	ErrSweepFailed            = errors.New("currency sweep failed")
	ErrCurrencyNotReceived    = errors.New("swept currency not received")
	ErrPoolInitFailed         = errors.New("pool initialization failed")
	ErrMintFailed             = errors.New("position mint failed")
	ErrTransferFailed         = errors.New("token transfer failed")
)

// Kind classifies an error by how a caller can react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is fatal to the instance; it must be redeployed.
	KindConfiguration
	// KindPrecondition reverts without effect; the call may succeed later.
	KindPrecondition
	// KindArithmetic comes from price validation and leaves only the sweep path.
	KindArithmetic
	// KindExternal is a collaborator failure; the whole transition rolled back.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindPrecondition:
		return "precondition"
	case KindArithmetic:
		return "arithmetic"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

var kindTable = []struct {
	kind Kind
	errs []error
}{
	{KindConfiguration, []error{
		ErrInvalidToken, ErrInvalidPoolFee, ErrInvalidTickSpacing, ErrInvalidPositionRecipient,
		ErrInvalidOperator, ErrInvalidSweepBlock, ErrInvalidEndBlock, ErrInvalidGovernance,
		ErrInvalidVirtualToken, ErrMissingCollaborator, ErrUnknownVariant,
		distribution.ErrInvalidSplit, distribution.ErrInvalidTotalSupply,
	}},
	{KindPrecondition, []error{
		ErrUnauthorized, ErrAlreadyValidated, ErrNotValidated, ErrAlreadyMigrated, ErrAlreadySwept,
		ErrTooEarly, ErrInsufficientTokens, ErrAuctionAlreadyDeployed, ErrMigrationNotApproved,
		ErrNotGovernance, ErrInvalidInitializer,
	}},
	{KindArithmetic, []error{
		pricing.ErrInvalidPrice, pricing.ErrAmountOverflow, pricing.ErrLiquidityOverflow,
		pricing.ErrDivisionByZero, pricing.ErrInvalidSqrtPrice, pricing.ErrInvalidTick,
	}},
	{KindExternal, []error{
		ErrPoolAlreadyInitialized, ErrAuctionCallFailed, ErrAuctionDeployFailed, ErrSweepFailed,
		ErrCurrencyNotReceived, ErrPoolInitFailed, ErrMintFailed, ErrTransferFailed,
	}},
}

// KindOf returns the kind of the first known error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, entry := range kindTable {
		for _, target := range entry.errs {
			if errors.Is(err, target) {
				return entry.kind
			}
		}
	}
	return KindUnknown
}
