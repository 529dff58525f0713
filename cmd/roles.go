package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/wallet"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect and grant MedChain roles",
}

var rolesTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Show the allow-listed accounts and what each role may do",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := [][]string{}
		for _, e := range auth.DefaultRoleTable.Entries() {
			rows = append(rows, []string{e.Address.Hex(), e.Role.Title(), e.DisplayName})
		}
		appUI.Table([]string{"Address", "Role", "Name"}, rows)

		perms := [][]string{}
		for _, r := range auth.AllRoles() {
			names := []string{}
			for _, p := range r.Permissions().List() {
				names = append(names, p.String())
			}
			perms = append(perms, []string{r.Title(), strings.Join(names, ", ")})
		}
		appUI.Table([]string{"Role", "Permissions"}, perms)
		return nil
	},
}

var rolesCheckCmd = &cobra.Command{
	Use:   "check <address>",
	Short: "Show the role an address holds on the contract and in the allow-list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := wallet.ParseAddress(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			allowListed := "not allow-listed"
			if e, err := a.auth.Resolver().ResolveWalletAddress(addr); err == nil {
				allowListed = fmt.Sprintf("%s (%s)", e.Role.Title(), e.DisplayName)
			}

			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			role, found, err := p.CheckUserRole(ctx, addr)
			if err != nil {
				return err
			}
			onChain := "none"
			if found {
				onChain = role.Title()
			}
			appUI.KeyValue([][2]string{
				{"Address", addr.Hex()},
				{"On chain", onChain},
				{"Allow-list", allowListed},
			})
			return nil
		})
	},
}

var rolesGrantCmd = &cobra.Command{
	Use:   "grant <role> <address>",
	Short: "Grant a supply chain role to an address",
	Long: `Grants the manufacturer, distributor, hospital or patient role. The role may be
abbreviated, eg. "manu" or "dist". Needs the manage_users permission.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := auth.FindRole(args[0])
		if err != nil {
			return err
		}
		appUI.Interpret(role.Title())
		addr, err := wallet.ParseAddress(args[1])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermManageUsers); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			if has, err := p.HasRole(ctx, role, addr); err == nil && has {
				appUI.Info("%s already has the %s role", addr.Hex(), role.Title())
				return nil
			}
			receipt, err := p.GrantRole(ctx, role, addr)
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("Granted %s to %s", role.Title(), addr.Hex()), receipt)
			return nil
		})
	},
}

var rolesSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Grant the roles of the demo accounts",
	Long: `Grants the manufacturer, distributor and hospital roles to the sample accounts
and the patient role to every sample patient. Patients that can't be granted
are skipped. Needs the manage_users permission.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermManageUsers); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			if !confirm(appUI, fmt.Sprintf("Send %d role grant transactions?", 3+len(contract.SampleAccounts.Patients))) {
				appUI.Info("Nothing changed")
				return nil
			}
			stop := appUI.Spinner("Granting roles")
			receipts, err := p.SetupAllRoles(ctx)
			stop()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Manufacturer", contract.SampleAccounts.Manufacturer.Name, contract.SampleAccounts.Manufacturer.Address.Hex()},
				{"Distributor", contract.SampleAccounts.Distributor.Name, contract.SampleAccounts.Distributor.Address.Hex()},
				{"Hospital", contract.SampleAccounts.Hospital.Name, contract.SampleAccounts.Hospital.Address.Hex()},
			}
			for _, patient := range contract.SampleAccounts.Patients {
				rows = append(rows, []string{"Patient " + patient.ID, patient.Name, patient.Address.Hex()})
			}
			appUI.Table([]string{"Role", "Name", "Address"}, rows)
			appUI.Success("%d role grants mined", len(receipts))
			return nil
		})
	},
}

func init() {
	rolesCmd.AddCommand(rolesTableCmd)
	rolesCmd.AddCommand(rolesCheckCmd)
	rolesCmd.AddCommand(rolesGrantCmd)
	rolesSetupCmd.Flags().BoolVarP(&AssumeYes, "yes", "y", false, "don't ask for confirmation")
	rolesCmd.AddCommand(rolesSetupCmd)
	rootCmd.AddCommand(rolesCmd)
}
