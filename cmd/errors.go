package cmd

import (
	"errors"
	"fmt"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/networks"
	"github.com/tranvictor/medchain/ui"
	"github.com/tranvictor/medchain/wallet"
)

// renderError prints err with what the user can do about it.
func renderError(u ui.UI, err error) {
	u.Error("%s", err)

	var unauthorized *auth.UnauthorizedAddressError
	switch {
	case errors.As(err, &unauthorized):
		lines := make([]string, 0, len(unauthorized.Allowed))
		for _, e := range unauthorized.Allowed {
			lines = append(lines, fmt.Sprintf("%-13s %s", e.Role.Title(), e.Address.Hex()))
		}
		u.Box("Connect with one of the allow-listed accounts", lines)

	case errors.Is(err, wallet.ErrWrongNetwork), errors.Is(err, wallet.ErrNetworkAddFailed):
		d := networks.HardhatLocalhost.Descriptor()
		u.Box("Add the network to your wallet manually", []string{
			"Network name:    " + d.ChainName,
			"RPC URL:         " + d.RPCURLs[0],
			fmt.Sprintf("Chain ID:        %d", uint64(d.ChainID)),
			"Currency symbol: " + d.NativeCurrency.Symbol,
		})
		u.Info("Then run: medchain network switch %s", networks.HardhatLocalhost.GetName())

	case errors.Is(err, wallet.ErrWalletUnavailable), errors.Is(err, wallet.ErrNoAccountsGranted):
		u.Info("Import an account first: medchain wallet import --hardhat")

	case errors.Is(err, contract.ErrNotInitialized):
		u.Info("Make sure the node is running and MedChain is deployed, or point --contract to the deployment")
	}
}
