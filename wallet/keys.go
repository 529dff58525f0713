package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// HardhatDevKeys are the private keys of the first five accounts of the
// default hardhat node mnemonic. They are public and only meant for local
// development.
var HardhatDevKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a",
}

// NewKeyStore opens the keystore directory. light trades security for speed
// and is only suitable for dev keys and tests.
func NewKeyStore(dir string, light bool) *keystore.KeyStore {
	if light {
		return keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	}
	return keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
}

// ImportKey stores the raw hex private key encrypted with passphrase. An
// account that is already in the keystore is returned as is.
func ImportKey(ks *keystore.KeyStore, hexKey string, passphrase string) (accounts.Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return accounts.Account{}, fmt.Errorf("invalid private key: %w", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	if ks.HasAddress(addr) {
		return ks.Find(accounts.Account{Address: addr})
	}
	return ks.ImportECDSA(key, passphrase)
}
