package deploy

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestCreate2AddressVectors(t *testing.T) {
	cases := []struct {
		deployer string
		salt     string
		initCode []byte
		want     string
	}{
		{
			deployer: "0x0000000000000000000000000000000000000000",
			salt:     "0x0000000000000000000000000000000000000000000000000000000000000000",
			initCode: []byte{0x00},
			want:     "0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38",
		},
		{
			deployer: "0xdeadbeef00000000000000000000000000000000",
			salt:     "0x0000000000000000000000000000000000000000000000000000000000000000",
			initCode: []byte{0x00},
			want:     "0xB928f69Bb1D91Cd65274e3c79d8986362984fDA3",
		},
	}

	for _, tc := range cases {
		got := Create2Address(common.HexToAddress(tc.deployer), common.HexToHash(tc.salt), crypto.Keccak256Hash(tc.initCode))
		require.Equal(t, common.HexToAddress(tc.want), got)
	}
}

func TestSenderSaltMatchesManualEncoding(t *testing.T) {
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	salt := common.HexToHash("0x01")

	got, err := SenderSalt(sender, salt)
	require.NoError(t, err)

	want := crypto.Keccak256Hash(common.LeftPadBytes(sender.Bytes(), 32), salt.Bytes())
	require.Equal(t, want, got)
}

func TestLauncherSaltNestsSender(t *testing.T) {
	launcher := common.HexToAddress("0x2222222222222222222222222222222222222222")
	sender := common.HexToAddress("0x3333333333333333333333333333333333333333")
	salt := common.HexToHash("0xbeef")

	inner, err := SenderSalt(sender, salt)
	require.NoError(t, err)
	want, err := SenderSalt(launcher, inner)
	require.NoError(t, err)

	got, err := LauncherSalt(launcher, sender, salt)
	require.NoError(t, err)
	require.Equal(t, want, got)

	other, err := LauncherSalt(launcher, launcher, salt)
	require.NoError(t, err)
	require.NotEqual(t, got, other)
}

func TestInitCodeHashAppendsArgs(t *testing.T) {
	uintTy, err := abi.NewType("uint64", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: uintTy}}

	got, err := InitCodeHash([]byte{0x60, 0x80}, args, uint64(5))
	require.NoError(t, err)

	encoded := common.LeftPadBytes([]byte{5}, 32)
	want := crypto.Keccak256Hash(append([]byte{0x60, 0x80}, encoded...))
	require.Equal(t, want, got)
}
