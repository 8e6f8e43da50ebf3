package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidityLauncher/internal/auction"
	"liquidityLauncher/internal/deploy"
	"liquidityLauncher/internal/distribution"
	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/pricing"
	"liquidityLauncher/internal/strategy"
	"liquidityLauncher/internal/token"
)

var (
	launcherAddr     = common.HexToAddress("0x1a00000000000000000000000000000000000001")
	tokenFactoryAddr = common.HexToAddress("0x1a00000000000000000000000000000000000002")
	lbpFactoryAddr   = common.HexToAddress("0x1a00000000000000000000000000000000000003")
	auctionsAddr     = common.HexToAddress("0x1a00000000000000000000000000000000000004")
	managerAddr      = common.HexToAddress("0x1a00000000000000000000000000000000000005")
	positionsAddr    = common.HexToAddress("0x1a00000000000000000000000000000000000006")

	creatorAddr    = common.HexToAddress("0xc0000000000000000000000000000000000000c0")
	currencyAddr   = common.HexToAddress("0xcc000000000000000000000000000000000000c1")
	recipientAddr  = common.HexToAddress("0xe1000000000000000000000000000000000000e1")
	operatorAddr   = common.HexToAddress("0xe2000000000000000000000000000000000000e2")
	governanceAddr = common.HexToAddress("0xe3000000000000000000000000000000000000e3")
	aliceAddr      = common.HexToAddress("0xa1000000000000000000000000000000000000a1")
	bobAddr        = common.HexToAddress("0xb0000000000000000000000000000000000000b0")
	underlyingAddr = common.HexToAddress("0xd0000000000000000000000000000000000000d0")
	virtualAddr    = common.HexToAddress("0xd1000000000000000000000000000000000000d1")
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

type env struct {
	ctx      context.Context
	ledger   *ledger.Ledger
	tokens   *token.Factory
	auctions *auction.Factory
	manager  *pool.Manager
	lbp      *LBPFactory
	registry *Registry
	launcher *Launcher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	l := ledger.New(0)
	manager := pool.NewManager(managerAddr, l, nil)
	e := &env{
		ctx:      context.Background(),
		ledger:   l,
		tokens:   token.NewFactory(tokenFactoryAddr, l, nil),
		auctions: auction.NewFactory(auctionsAddr, l, nil),
		manager:  manager,
		registry: NewRegistry(),
	}
	e.lbp = NewLBPFactory(lbpFactoryAddr, LBPDeps{
		Ledger:    l,
		Auctions:  e.auctions,
		Pools:     manager,
		Positions: pool.NewPositionManager(positionsAddr, manager, l, nil),
	}, nil)
	require.NoError(t, e.registry.Register(lbpFactoryAddr, e.lbp))
	e.launcher = New(launcherAddr, l, e.tokens, e.registry, nil)
	return e
}

func baseConfig() StrategyConfig {
	return StrategyConfig{
		Currency:            currencyAddr,
		TokenSplitToAuction: distribution.MaxSplit / 2,
		MigrationBlock:      200,
		SweepBlock:          300,
		PoolLPFee:           3000,
		PoolTickSpacing:     60,
		PositionRecipient:   recipientAddr,
		Operator:            operatorAddr,
		AuctionStartBlock:   100,
		AuctionEndBlock:     150,
		AuctionSalt:         common.HexToHash("0xa5"),
		Variant:             strategy.VariantBasic,
		Governance:          governanceAddr,
	}
}

func (e *env) createToken(t *testing.T) common.Address {
	t.Helper()
	addr, err := e.launcher.CreateToken(e.ctx, creatorAddr, TokenSpec{
		Name:          "Launch",
		Symbol:        "LNCH",
		Decimals:      18,
		InitialSupply: ether(1000),
		Recipient:     creatorAddr,
	}, common.HexToHash("0x01"))
	require.NoError(t, err)
	return addr
}

func TestStrategyConfigRoundTrip(t *testing.T) {
	cfg := baseConfig()
	cfg.PoolTickSpacing = -1 // negative values survive int24 packing
	cfg.CreateOneSidedCurrencyPosition = true
	cfg.AuctionExtra = []byte{0xde, 0xad}
	cfg.Variant = strategy.VariantGovernedVirtual

	data, err := EncodeStrategyConfig(cfg)
	require.NoError(t, err)
	got, err := DecodeStrategyConfig(data)
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	_, err = DecodeStrategyConfig([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	e := newEnv(t)

	_, err := r.Lookup(lbpFactoryAddr)
	require.ErrorIs(t, err, ErrUnknownDistributor)

	require.NoError(t, r.Register(lbpFactoryAddr, e.lbp))
	require.ErrorIs(t, r.Register(lbpFactoryAddr, e.lbp), ErrDistributorExists)
	require.Error(t, r.Register(common.Address{}, e.lbp))

	d, err := r.Lookup(lbpFactoryAddr)
	require.NoError(t, err)
	require.Equal(t, Distributor(e.lbp), d)
	require.Equal(t, []common.Address{lbpFactoryAddr}, r.Addresses())
}

func TestCreateTokenBindsSaltToSender(t *testing.T) {
	e := newEnv(t)
	spec := TokenSpec{Name: "Launch", Symbol: "LNCH", Decimals: 18, InitialSupply: ether(1), Recipient: creatorAddr}
	salt := common.HexToHash("0x01")

	mine, err := e.launcher.PredictToken(creatorAddr, spec, salt)
	require.NoError(t, err)
	theirs, err := e.launcher.PredictToken(aliceAddr, spec, salt)
	require.NoError(t, err)
	require.NotEqual(t, mine, theirs)

	addr, err := e.launcher.CreateToken(e.ctx, creatorAddr, spec, salt)
	require.NoError(t, err)
	require.Equal(t, mine, addr)
	require.Equal(t, ether(1), e.ledger.BalanceOf(addr, creatorAddr))
}

func TestDistributeTokenLaunchesStrategy(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	data, err := EncodeStrategyConfig(baseConfig())
	require.NoError(t, err)
	spec := DistributionSpec{Strategy: lbpFactoryAddr, Amount: ether(1000), ConfigData: data}
	salt := common.HexToHash("0x77")

	predicted, err := e.launcher.PredictDistribution(creatorAddr, tok, spec, salt)
	require.NoError(t, err)

	// the factory sees the launcher as caller and the sender-bound salt
	args, err := lbpConstructorArguments()
	require.NoError(t, err)
	codeHash, err := deploy.InitCodeHash(lbpCreationCode, args, tok, spec.Amount.ToBig(), data)
	require.NoError(t, err)
	launcherSalt, err := deploy.LauncherSalt(launcherAddr, creatorAddr, salt)
	require.NoError(t, err)
	require.Equal(t, deploy.Create2Address(lbpFactoryAddr, launcherSalt, codeHash), predicted)

	dist, err := e.launcher.DistributeToken(e.ctx, creatorAddr, tok, spec, true, salt)
	require.NoError(t, err)
	require.Equal(t, predicted, dist.Address())

	s, ok := e.lbp.Strategy(predicted)
	require.True(t, ok)
	require.Equal(t, strategy.AuctionActive, s.Lifecycle())
	require.True(t, e.ledger.BalanceOf(tok, creatorAddr).IsZero())
	require.Equal(t, ether(500), e.ledger.BalanceOf(tok, predicted))

	a, ok := e.auctions.Auction(s.Auction().Address())
	require.True(t, ok)
	require.Equal(t, ether(500), e.ledger.BalanceOf(tok, a.Address()))

	// run the launch to completion
	e.ledger.SetBlockNumber(100)
	require.NoError(t, e.ledger.Mint(currencyAddr, aliceAddr, ether(300)))
	require.NoError(t, e.ledger.Mint(currencyAddr, bobAddr, ether(200)))
	_, err = a.Bid(e.ctx, aliceAddr, ether(300), new(uint256.Int).Mul(pricing.Q96, uint256.NewInt(2)))
	require.NoError(t, err)
	_, err = a.Bid(e.ctx, bobAddr, ether(200), pricing.Q96)
	require.NoError(t, err)

	e.ledger.SetBlockNumber(150)
	require.NoError(t, a.Finalize(e.ctx))
	require.Equal(t, strategy.PriceValidated, s.Lifecycle())

	e.ledger.SetBlockNumber(200)
	require.NoError(t, s.Migrate(e.ctx))
	require.Equal(t, strategy.Migrated, s.Lifecycle())
	require.Len(t, s.PositionIDs(), 1)

	_, err = e.launcher.DistributeToken(e.ctx, creatorAddr, tok, spec, true, salt)
	require.ErrorIs(t, err, ErrStrategyExists)
}

func TestDistributeTokenUnknownFactory(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	_, err := e.launcher.DistributeToken(e.ctx, creatorAddr, tok, DistributionSpec{
		Strategy: common.HexToAddress("0xdead"),
		Amount:   ether(1),
	}, true, common.Hash{})
	require.ErrorIs(t, err, ErrUnknownDistributor)

	_, err = e.launcher.DistributeToken(e.ctx, creatorAddr, tok, DistributionSpec{Strategy: lbpFactoryAddr}, true, common.Hash{})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDistributeTokenRevertsOnInvalidConfig(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	cfg := baseConfig()
	cfg.SweepBlock = cfg.MigrationBlock
	data, err := EncodeStrategyConfig(cfg)
	require.NoError(t, err)

	_, err = e.launcher.DistributeToken(e.ctx, creatorAddr, tok, DistributionSpec{Strategy: lbpFactoryAddr, Amount: ether(1000), ConfigData: data}, true, common.Hash{})
	require.ErrorIs(t, err, strategy.ErrInvalidSweepBlock)
	require.Equal(t, ether(1000), e.ledger.BalanceOf(tok, creatorAddr))
	require.Empty(t, e.lbp.Strategies())
}

func TestDistributeTokenFromLauncherBalance(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	data, err := EncodeStrategyConfig(baseConfig())
	require.NoError(t, err)
	spec := DistributionSpec{Strategy: lbpFactoryAddr, Amount: ether(1000), ConfigData: data}

	_, err = e.launcher.DistributeToken(e.ctx, creatorAddr, tok, spec, false, common.Hash{})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	require.Empty(t, e.lbp.Strategies())

	require.NoError(t, e.ledger.Transfer(tok, creatorAddr, launcherAddr, ether(1000)))
	dist, err := e.launcher.DistributeToken(e.ctx, creatorAddr, tok, spec, false, common.Hash{})
	require.NoError(t, err)
	require.True(t, e.ledger.BalanceOf(tok, launcherAddr).IsZero())
	require.Equal(t, ether(500), e.ledger.BalanceOf(tok, dist.Address()))
}

type fakeDistribution struct {
	addr      common.Address
	notifyErr error
	notified  int
}

func (d *fakeDistribution) Address() common.Address { return d.addr }

func (d *fakeDistribution) OnTokensReceived(context.Context) error {
	d.notified++
	return d.notifyErr
}

type fakeDistributor struct {
	dist *fakeDistribution
}

func (f fakeDistributor) InitializeDistribution(context.Context, common.Address, common.Address, *uint256.Int, []byte, common.Hash) (Distribution, error) {
	return f.dist, nil
}

func (f fakeDistributor) PredictAddress(common.Address, common.Address, *uint256.Int, []byte, common.Hash) (common.Address, error) {
	return f.dist.addr, nil
}

func TestDistributeTokenRequiresFullReceipt(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	fakeAddr := common.HexToAddress("0xfa4e")
	// a distribution living at the payer's own address sees no balance change
	dist := &fakeDistribution{addr: creatorAddr}
	require.NoError(t, e.registry.Register(fakeAddr, fakeDistributor{dist: dist}))

	_, err := e.launcher.DistributeToken(e.ctx, creatorAddr, tok, DistributionSpec{Strategy: fakeAddr, Amount: ether(10)}, true, common.Hash{})
	require.ErrorIs(t, err, ErrTokensNotReceived)
	require.Zero(t, dist.notified)
	require.Equal(t, ether(1000), e.ledger.BalanceOf(tok, creatorAddr))
}

func TestDistributeTokenRevertsOnFailedNotify(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	fakeAddr := common.HexToAddress("0xfa4e")
	dist := &fakeDistribution{addr: common.HexToAddress("0xd157"), notifyErr: errors.New("boom")}
	require.NoError(t, e.registry.Register(fakeAddr, fakeDistributor{dist: dist}))

	_, err := e.launcher.DistributeToken(e.ctx, creatorAddr, tok, DistributionSpec{Strategy: fakeAddr, Amount: ether(10)}, true, common.Hash{})
	require.Error(t, err)
	require.Equal(t, 1, dist.notified)
	require.Equal(t, ether(1000), e.ledger.BalanceOf(tok, creatorAddr))
	require.True(t, e.ledger.BalanceOf(tok, dist.addr).IsZero())
}

func TestGovernedDistributionGatesPoolInitialization(t *testing.T) {
	e := newEnv(t)
	tok := e.createToken(t)
	cfg := baseConfig()
	cfg.Variant = strategy.VariantGoverned
	data, err := EncodeStrategyConfig(cfg)
	require.NoError(t, err)

	dist, err := e.launcher.DistributeToken(e.ctx, creatorAddr, tok, DistributionSpec{Strategy: lbpFactoryAddr, Amount: ether(1000), ConfigData: data}, true, common.Hash{})
	require.NoError(t, err)
	s, ok := dist.(*strategy.Strategy)
	require.True(t, ok)

	_, err = e.manager.Initialize(e.ctx, s.PoolKey(), pricing.Q96, aliceAddr)
	require.ErrorIs(t, err, strategy.ErrInvalidInitializer)

	_, err = e.manager.Initialize(e.ctx, s.PoolKey(), pricing.Q96, s.Address())
	require.ErrorIs(t, err, strategy.ErrMigrationNotApproved)
}

func TestVirtualDistribution(t *testing.T) {
	e := newEnv(t)
	cfg := baseConfig()
	cfg.Variant = strategy.VariantVirtual
	data, err := EncodeStrategyConfig(cfg)
	require.NoError(t, err)
	spec := DistributionSpec{Strategy: lbpFactoryAddr, Amount: ether(1000), ConfigData: data}
	salt := common.HexToHash("0x99")

	_, err = e.launcher.DistributeToken(e.ctx, creatorAddr, virtualAddr, spec, true, salt)
	require.ErrorIs(t, err, ErrUnknownVirtualToken)

	v, err := token.NewVirtual(e.ledger, virtualAddr, underlyingAddr, creatorAddr)
	require.NoError(t, err)
	e.lbp.RegisterVirtual(v)
	require.NoError(t, e.ledger.Mint(underlyingAddr, creatorAddr, ether(1000)))
	require.NoError(t, v.Wrap(creatorAddr, creatorAddr, ether(1000)))

	predicted, err := e.launcher.PredictDistribution(creatorAddr, virtualAddr, spec, salt)
	require.NoError(t, err)
	require.NoError(t, v.SetStrategy(creatorAddr, predicted))

	dist, err := e.launcher.DistributeToken(e.ctx, creatorAddr, virtualAddr, spec, true, salt)
	require.NoError(t, err)
	require.Equal(t, predicted, dist.Address())

	s, ok := e.lbp.Strategy(predicted)
	require.True(t, ok)
	require.True(t, v.Allowed(s.Auction().Address()))
	require.Equal(t, ether(500), e.ledger.BalanceOf(virtualAddr, s.Auction().Address()))
}
