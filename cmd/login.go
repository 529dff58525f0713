package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/wallet"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the wallet, an email or as a guest",
	Long: `Supply chain actors log in with their wallet: the connected account must be
allow-listed and its role decides what it can do. Everyone else logs in with
an email as a public user, or continues as a guest who can only verify drugs.`,
}

var loginWalletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Log in with the connected wallet account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			conn := a.manager.Connection()
			if !conn.IsConnected() {
				return fmt.Errorf("%w, run medchain connect first", wallet.ErrNotConnected)
			}
			session, err := loginWallet(a, conn.Address)
			if err != nil {
				return err
			}
			showSession(session)
			return nil
		})
	},
}

var loginEmailCmd = &cobra.Command{
	Use:   "email [address]",
	Short: "Log in as a public user",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			email := ""
			if len(args) > 0 {
				email = args[0]
			} else {
				appUI.Info("Email:")
				email = appUI.Ask(nil)
			}
			password := appUI.Secret("Password (leave empty to skip verification): ")
			session, err := a.auth.LoginWithEmail(email, password)
			if err != nil {
				return err
			}
			showSession(session)
			return nil
		})
	},
}

var loginGuestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Continue as a guest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			session, err := a.auth.ContinueAsGuest()
			if err != nil {
				return err
			}
			showSession(session)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if !a.auth.IsAuthenticated() {
				appUI.Info("Not logged in")
				return nil
			}
			if err := a.auth.Logout(); err != nil {
				return err
			}
			appUI.Success("Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			session, ok := a.auth.Current()
			if !ok {
				return errors.New("not logged in, run medchain login first")
			}
			showSession(session)
			return nil
		})
	},
}

func showSession(s auth.Session) {
	rows := [][2]string{
		{"Name", s.Name},
		{"Role", s.Role.Title()},
		{"Login", string(s.Kind)},
	}
	switch s.Kind {
	case auth.KindWallet:
		if s.Address != nil {
			rows = append(rows, [2]string{"Address", s.Address.Hex()})
		}
		rows = append(rows, [2]string{"Network", fmt.Sprintf("%s (chain %d)", s.Network, s.ChainID)})
	case auth.KindEmail:
		rows = append(rows, [2]string{"Email", s.Email})
	case auth.KindGuest:
		rows = append(rows, [2]string{"Session ID", s.SessionID})
	}
	verified := "no"
	if s.Verified {
		verified = "yes"
	}
	rows = append(rows,
		[2]string{"Verified", verified},
		[2]string{"Since", s.LoginTime.Local().Format("2006-01-02 15:04:05")},
	)
	appUI.Section("Session")
	appUI.KeyValue(rows)
}

func init() {
	loginCmd.AddCommand(loginWalletCmd)
	loginCmd.AddCommand(loginEmailCmd)
	loginCmd.AddCommand(loginGuestCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
