package config

import (
	"github.com/spf13/pflag"
)

// PreviewConfig holds configuration for the preview command.
type PreviewConfig struct {
	RPCURL  string
	Auction string
	// Token and Currency override what the auction contract reports.
	Token    string
	Currency string
	// ReserveSupply is in token base units.
	ReserveSupply string
	LogLevel      string
}

// LoadPreview merges config file, environment variables, and flags into PreviewConfig.
func LoadPreview(cfgFile string, flags *pflag.FlagSet) (PreviewConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{})
	if err != nil {
		return PreviewConfig{}, err
	}
	return PreviewConfig{
		RPCURL:        v.GetString("rpc"),
		Auction:       v.GetString("auction"),
		Token:         v.GetString("token"),
		Currency:      v.GetString("currency"),
		ReserveSupply: v.GetString("reserve-supply"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// AddressConfig holds configuration for the address command.
type AddressConfig struct {
	Deployer     string
	Launcher     string
	Sender       string
	Salt         string
	InitCodeHash string
	LogLevel     string
}

// LoadAddress merges config file, environment variables, and flags into AddressConfig.
func LoadAddress(cfgFile string, flags *pflag.FlagSet) (AddressConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{})
	if err != nil {
		return AddressConfig{}, err
	}
	return AddressConfig{
		Deployer:     v.GetString("deployer"),
		Launcher:     v.GetString("launcher"),
		Sender:       v.GetString("sender"),
		Salt:         v.GetString("salt"),
		InitCodeHash: v.GetString("init-code-hash"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
