package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/wallet"
)

var whoCmd = &cobra.Command{
	Use:   "who",
	Short: "Maintain the WHO approved drug list",
	Long: `Drugs are keyed by the keccak256 hash of their drug code. Pass a drug code
(eg. paracetamol_500mg) or a 0x prefixed 32 byte hash.`,
}

// drugHashArg accepts a drug code or a ready made hash.
func drugHashArg(s string) common.Hash {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		return common.HexToHash(s)
	}
	code := contract.DrugCode(s)
	appUI.Interpret(code)
	return contract.DrugHash(code)
}

func whoUpdateCmd(use, short string, add bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <drug code>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := drugHashArg(args[0])
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.require(auth.PermSystemConfig); err != nil {
					return err
				}
				p, err := a.contract(ctx)
				if err != nil {
					return err
				}
				update, verb := p.RemoveWHOApprovedDrug, "removed from"
				if add {
					update, verb = p.AddWHOApprovedDrug, "added to"
				}
				receipt, err := update(ctx, hash)
				if err != nil {
					return err
				}
				showReceipt(appUI, fmt.Sprintf("%s %s the WHO list", args[0], verb), receipt)
				return nil
			})
		},
	}
}

var whoCheckCmd = &cobra.Command{
	Use:   "check <drug code>",
	Short: "Check whether a drug is WHO approved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash := drugHashArg(args[0])
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			approved, err := p.IsWHOApproved(ctx, hash)
			if err != nil {
				return err
			}
			if approved {
				appUI.Success("%s is WHO approved", args[0])
			} else {
				appUI.Warn("%s is not on the WHO list", args[0])
			}
			return nil
		})
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Read and update patient health records",
}

var updateRecordCmd = &cobra.Command{
	Use:   "update <patient address> <ipfs hash>",
	Short: "Point a patient's health record to a new document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patient, err := wallet.ParseAddress(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermHealthRecords); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			receipt, err := p.UpdateHealthRecord(ctx, patient, args[1])
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("Health record of %s updated", holderName(patient)), receipt)
			return nil
		})
	},
}

var getRecordCmd = &cobra.Command{
	Use:   "get [patient address]",
	Short: "Show a patient's health record, your own by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if !a.auth.HasPermission(auth.PermHealthRecords) && !a.auth.HasRole(auth.RolePatient) {
				return fmt.Errorf("only hospitals and patients can read health records")
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			patient, err := accountArg(p, args)
			if err != nil {
				return err
			}
			record, err := p.GetHealthRecord(ctx, patient)
			if err != nil {
				return err
			}
			appUI.KeyValue([][2]string{
				{"Patient", holderName(record.Patient)},
				{"Document", record.IPFSHash},
			})
			return nil
		})
	},
}

func init() {
	whoCmd.AddCommand(whoUpdateCmd("add", "Add a drug to the WHO approved list", true))
	whoCmd.AddCommand(whoUpdateCmd("remove", "Remove a drug from the WHO approved list", false))
	whoCmd.AddCommand(whoCheckCmd)
	rootCmd.AddCommand(whoCmd)

	recordCmd.AddCommand(updateRecordCmd)
	recordCmd.AddCommand(getRecordCmd)
	rootCmd.AddCommand(recordCmd)
}
