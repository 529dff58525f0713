package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/ui"
	"github.com/tranvictor/medchain/wallet"
)

var (
	ImportHardhat bool
	RevokeGrant   bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the accounts medchain can sign with",
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect an account and log in with the role it is allow-listed for",
	Long: `Connects one of the keystore accounts, moving the wallet to the MedChain
network first when it is on another one (the network is added to the wallet
when it doesn't know it). The account then logs in with its allow-listed role.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			addr, err := a.manager.Connect(ctx)
			if err != nil {
				return err
			}
			session, err := loginWallet(a, addr)
			if err != nil {
				return err
			}
			appUI.Success("Connected %s as %s", wallet.ShortAddress(addr), session.Name)
			showConnection(ctx, a)
			return nil
		})
	},
}

// loginWallet logs the connected address in. An address that isn't
// allow-listed is disconnected again.
func loginWallet(a *app, addr common.Address) (auth.Session, error) {
	conn := a.manager.Connection()
	network := a.wallet.Network().GetName()
	session, err := a.auth.LoginWithWallet(addr, conn.ChainID, network)
	if err != nil {
		var unauthorized *auth.UnauthorizedAddressError
		if errors.As(err, &unauthorized) {
			a.manager.Disconnect()
		}
		return auth.Session{}, err
	}
	return session, nil
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the wallet connection and log out of the wallet session",
	Long: `Forgets the connection locally and ends a wallet session. The account stays
granted, so the next medchain command reconnects it silently. Pass --revoke to
drop the grant as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if RevokeGrant && !confirm(appUI, "Revoke the account grant? Reconnecting will ask for an account again") {
			appUI.Info("Nothing changed")
			return nil
		}
		return withApp(func(ctx context.Context, a *app) error {
			a.manager.Disconnect()
			if err := a.auth.HandleWalletChange(wallet.Change{Connection: a.manager.Connection()}); err != nil {
				return err
			}
			if RevokeGrant {
				if err := a.wallet.Revoke(); err != nil {
					return fmt.Errorf("couldn't revoke the account grant: %w", err)
				}
				appUI.Info("Account grant revoked, medchain connect will ask for an account again")
			}
			appUI.Success("Wallet disconnected")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wallet connection, the session and the contract binding",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			showConnection(ctx, a)
			return nil
		})
	},
}

func showConnection(ctx context.Context, a *app) {
	conn := a.manager.Connection()
	rows := [][2]string{{"Wallet", conn.State.String()}}
	if conn.IsConnected() {
		rows = append(rows, [2]string{"Account", conn.Address.Hex()})
		n := a.wallet.Network()
		rows = append(rows, [2]string{"Network", fmt.Sprintf("%s (chain %d)", n.GetName(), conn.ChainID)})
		if balance, err := a.manager.Balance(ctx); err == nil {
			rows = append(rows, [2]string{"Balance", formatUnits(balance, n.GetNativeTokenDecimal()) + " " + n.GetNativeTokenSymbol()})
		} else {
			rows = append(rows, [2]string{"Balance", appUI.Style(ui.StyledText{Text: "unavailable", Severity: ui.SeverityError})})
		}
	}
	if session, ok := a.auth.Current(); ok {
		rows = append(rows,
			[2]string{"Session", fmt.Sprintf("%s, %s", session.Name, session.Kind)},
			[2]string{"Role", session.Role.Title()},
		)
		perms := []string{}
		for _, p := range session.Permissions.List() {
			perms = append(perms, p.String())
		}
		rows = append(rows, [2]string{"Permissions", strings.Join(perms, ", ")})
	} else {
		rows = append(rows, [2]string{"Session", "not logged in"})
	}
	contractState := "not bound"
	if a.proxy.Initialized() {
		contractState = "bound"
	}
	rows = append(rows, [2]string{"Contract", fmt.Sprintf("%s (%s)", a.proxy.Address().Hex(), contractState)})
	appUI.KeyValue(rows)
}

var importCmd = &cobra.Command{
	Use:   "import [private key]",
	Short: "Import a private key into the medchain keystore",
	Long: `Encrypts the private key with a passphrase and stores it in the keystore.
--hardhat imports the five development accounts of the default hardhat node,
which are allow-listed as the admin, manufacturer, distributor, hospital and
patient accounts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := args
		if ImportHardhat {
			keys = wallet.HardhatDevKeys
		}
		if len(keys) == 0 {
			key := appUI.Secret("Private key (hex): ")
			if strings.TrimSpace(key) == "" {
				return errors.New("no private key given")
			}
			keys = []string{key}
		}
		passphrase := appUI.Secret("Passphrase to encrypt the key with: ")
		if !ImportHardhat && passphrase != appUI.Secret("Repeat the passphrase: ") {
			return errors.New("passphrases don't match")
		}

		ks := wallet.NewKeyStore(cfg.KeystoreDir, cfg.LightKDF)
		for _, key := range keys {
			acc, err := wallet.ImportKey(ks, key, passphrase)
			if err != nil {
				return err
			}
			appUI.Success("Imported %s", holderName(acc.Address))
		}
		appUI.Info("Keys are stored in %s", cfg.KeystoreDir)
		return nil
	},
}

var listWalletCmd = &cobra.Command{
	Use:   "list",
	Short: "List the keystore accounts and their allow-listed roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ks := wallet.NewKeyStore(cfg.KeystoreDir, cfg.LightKDF)
		rows := [][]string{}
		for i, acc := range ks.Accounts() {
			role, name := "-", "-"
			if e, found := auth.DefaultRoleTable.Lookup(acc.Address); found {
				role, name = e.Role.Title(), e.DisplayName
			}
			rows = append(rows, []string{fmt.Sprintf("%d", i+1), acc.Address.Hex(), role, name})
		}
		if len(rows) == 0 {
			appUI.Warn("No accounts in %s", cfg.KeystoreDir)
			appUI.Info("Import one with: medchain wallet import --hardhat")
			return nil
		}
		appUI.Table([]string{"#", "Address", "Role", "Name"}, rows)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&ImportHardhat, "hardhat", false, "import the hardhat development accounts")
	disconnectCmd.Flags().BoolVar(&RevokeGrant, "revoke", false, "also revoke the account grant")
	disconnectCmd.Flags().BoolVarP(&AssumeYes, "yes", "y", false, "don't ask for confirmation")

	walletCmd.AddCommand(importCmd)
	walletCmd.AddCommand(listWalletCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
}
