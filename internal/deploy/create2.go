// Package deploy reproduces the deterministic deployment addresses used by the
// launcher and strategy factories.
package deploy

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	senderSaltArgs     abi.Arguments
	senderSaltArgsOnce sync.Once
	senderSaltArgsErr  error
)

func senderSaltArguments() (abi.Arguments, error) {
	senderSaltArgsOnce.Do(func() {
		addressTy, err := abi.NewType("address", "", nil)
		if err != nil {
			senderSaltArgsErr = err
			return
		}
		bytes32Ty, err := abi.NewType("bytes32", "", nil)
		if err != nil {
			senderSaltArgsErr = err
			return
		}
		senderSaltArgs = abi.Arguments{{Type: addressTy}, {Type: bytes32Ty}}
	})
	return senderSaltArgs, senderSaltArgsErr
}

// SenderSalt binds a salt to the account that supplied it:
// keccak256(abi.encode(sender, salt)).
func SenderSalt(sender common.Address, salt common.Hash) (common.Hash, error) {
	args, err := senderSaltArguments()
	if err != nil {
		return common.Hash{}, fmt.Errorf("salt abi: %w", err)
	}
	encoded, err := args.Pack(sender, salt)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack salt: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// LauncherSalt is the salt a strategy factory deploys with when the launcher
// forwards a user's salt: the user is hashed in first, then the launcher.
func LauncherSalt(launcher, sender common.Address, salt common.Hash) (common.Hash, error) {
	withSender, err := SenderSalt(sender, salt)
	if err != nil {
		return common.Hash{}, err
	}
	return SenderSalt(launcher, withSender)
}

// InitCodeHash hashes creation bytecode followed by its ABI-encoded
// constructor arguments.
func InitCodeHash(bytecode []byte, args abi.Arguments, values ...interface{}) (common.Hash, error) {
	encoded, err := args.Pack(values...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack constructor args: %w", err)
	}
	initCode := make([]byte, 0, len(bytecode)+len(encoded))
	initCode = append(initCode, bytecode...)
	initCode = append(initCode, encoded...)
	return crypto.Keccak256Hash(initCode), nil
}

// Create2Address returns keccak256(0xff ++ deployer ++ salt ++ initCodeHash)[12:].
func Create2Address(deployer common.Address, salt common.Hash, initCodeHash common.Hash) common.Address {
	return crypto.CreateAddress2(deployer, salt, initCodeHash.Bytes())
}
