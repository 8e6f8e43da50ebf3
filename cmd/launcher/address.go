package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLauncher/internal/config"
	"liquidityLauncher/internal/deploy"
)

func runAddress(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAddress(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addr, salt, err := deriveAddress(cfg)
	if err != nil {
		return err
	}
	logger.Debug("address derived", zap.String("deployer", cfg.Deployer), zap.String("salt", salt.Hex()))

	fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nsalt:    %s\n", addr.Hex(), salt.Hex())
	return nil
}

// deriveAddress applies the sender and launcher salt binding before CREATE2.
// Without a sender the salt is used as given.
func deriveAddress(cfg config.AddressConfig) (common.Address, common.Hash, error) {
	deployer, err := parseAddress("deployer", cfg.Deployer, true)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	sender, err := parseAddress("sender", cfg.Sender, false)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	launcher, err := parseAddress("launcher", cfg.Launcher, false)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	salt, err := parseHash("salt", cfg.Salt)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	codeHash, err := parseHash("init-code-hash", cfg.InitCodeHash)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}

	switch {
	case launcher != (common.Address{}):
		if sender == (common.Address{}) {
			return common.Address{}, common.Hash{}, fmt.Errorf("sender is required with launcher")
		}
		salt, err = deploy.LauncherSalt(launcher, sender, salt)
	case sender != (common.Address{}):
		salt, err = deploy.SenderSalt(sender, salt)
	}
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	return deploy.Create2Address(deployer, salt, codeHash), salt, nil
}

func parseAddress(name, value string, required bool) (common.Address, error) {
	if value == "" {
		if required {
			return common.Address{}, fmt.Errorf("%s is required", name)
		}
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func parseHash(name, value string) (common.Hash, error) {
	if value == "" {
		return common.Hash{}, fmt.Errorf("%s is required", name)
	}
	b, err := hexutil.Decode(value)
	if err != nil || len(b) > common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid %s %q", name, value)
	}
	return common.BytesToHash(b), nil
}
