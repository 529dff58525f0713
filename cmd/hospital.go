package cmd

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/ui"
	"github.com/tranvictor/medchain/wallet"
)

var (
	HospitalName         string
	HospitalRegistration string
	HospitalType         string
	HospitalThreshold    uint64
	HospitalCapacity     uint64

	RequestQuantity string
	RequestReason   string
	RequestUrgency  string
)

var hospitalCmd = &cobra.Command{
	Use:   "hospital",
	Short: "Register and inspect hospitals",
}

var registerHospitalCmd = &cobra.Command{
	Use:   "register <address>",
	Short: "Register a hospital as an admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := wallet.ParseAddress(args[0])
		if err != nil {
			return err
		}
		hType, err := contract.ParseHospitalType(HospitalType)
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
			receipt, err := p.RegisterHospital(ctx, contract.NewHospital{
				Address:            addr,
				Name:               HospitalName,
				RegistrationNumber: HospitalRegistration,
				Type:               hType,
				StockThreshold:     new(big.Int).SetUint64(HospitalThreshold),
				Capacity:           new(big.Int).SetUint64(HospitalCapacity),
			})
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("%s registered", HospitalName), receipt)
			return nil
		})
	},
}

var getHospitalCmd = &cobra.Command{
	Use:   "get [address]",
	Short: "Show a hospital and its allocation priority",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			addr, err := accountArg(p, args)
			if err != nil {
				return err
			}
			h, err := p.GetHospital(ctx, addr)
			if err != nil {
				return err
			}
			active := ui.StyledText{Text: "inactive", Severity: ui.SeverityWarn}
			if h.IsActive {
				active = ui.StyledText{Text: "active", Severity: ui.SeveritySuccess}
			}
			rows := [][2]string{
				{"Address", h.Address.Hex()},
				{"Registration", h.RegistrationNumber},
				{"Type", h.Type.String()},
				{"Stock", fmt.Sprintf("%s / %s (threshold %s)", h.StockCount, h.Capacity, h.StockThreshold)},
				{"Status", appUI.Style(active)},
			}
			if priority, err := p.CalculatePriority(ctx, addr); err == nil {
				rows = append(rows, [2]string{"Priority", priority.String()})
			}
			appUI.Section(h.Name)
			appUI.KeyValue(rows)
			if h.StockCount != nil && h.StockThreshold != nil && h.StockCount.Cmp(h.StockThreshold) < 0 {
				appUI.Warn("Stock is below the threshold, request drugs with medchain request create")
			}
			return nil
		})
	},
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request drugs from a distributor and answer requests",
}

var createRequestCmd = &cobra.Command{
	Use:   "create <batch id> <distributor address>",
	Short: "Request units of a batch from a distributor as a hospital",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, err := parseUint(args[0], "batch id")
		if err != nil {
			return err
		}
		distributor, err := wallet.ParseAddress(args[1])
		if err != nil {
			return err
		}
		quantity, err := parseAmount(RequestQuantity)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.requireRole("request drugs", auth.RoleHospital, auth.RoleAdmin); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			receipt, err := p.RequestDrugs(ctx, contract.NewRequest{
				Distributor: distributor,
				BatchID:     batchID,
				Quantity:    quantity,
				Reason:      RequestReason,
				Urgency:     RequestUrgency,
			})
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("Requested %s units of batch #%d from %s", quantity, batchID, holderName(distributor)), receipt)
			return nil
		})
	},
}

func answerRequestCmd(use, short string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <request id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUint(args[0], "request id")
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.requireRole("answer drug requests", auth.RoleDistributor, auth.RoleAdmin); err != nil {
					return err
				}
				p, err := a.contract(ctx)
				if err != nil {
					return err
				}
				answer, verb := p.RejectRequest, "rejected"
				if approve {
					answer, verb = p.ApproveRequest, "approved"
				}
				receipt, err := answer(ctx, id)
				if err != nil {
					return err
				}
				showReceipt(appUI, fmt.Sprintf("Request #%d %s", id, verb), receipt)
				return nil
			})
		},
	}
}

var getRequestCmd = &cobra.Command{
	Use:   "get <request id>",
	Short: "Show a drug request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "request id")
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			r, err := p.GetDrugRequest(ctx, id)
			if err != nil {
				return err
			}
			status := ui.StyledText{Text: r.Status.String(), Severity: ui.SeverityWarn}
			switch r.Status {
			case contract.RequestApproved:
				status.Severity = ui.SeveritySuccess
			case contract.RequestRejected:
				status.Severity = ui.SeverityError
			}
			appUI.KeyValue([][2]string{
				{"Request", fmt.Sprintf("#%d", r.ID)},
				{"Hospital", holderName(r.Hospital)},
				{"Distributor", holderName(r.Distributor)},
				{"Batch", fmt.Sprintf("#%d", r.BatchID)},
				{"Quantity", r.Quantity.String()},
				{"Reason", r.Reason},
				{"Urgency", r.Urgency},
				{"Status", appUI.Style(status)},
				{"Requested", r.Timestamp.Local().Format(time.DateTime)},
			})
			return nil
		})
	},
}

func init() {
	registerHospitalCmd.Flags().StringVar(&HospitalName, "name", "", "hospital name")
	registerHospitalCmd.Flags().StringVar(&HospitalRegistration, "registration", "", "registration number")
	registerHospitalCmd.Flags().StringVar(&HospitalType, "type", "urban", "urban, rural or remote")
	registerHospitalCmd.Flags().Uint64Var(&HospitalThreshold, "threshold", 100, "stock level under which the hospital needs drugs")
	registerHospitalCmd.Flags().Uint64Var(&HospitalCapacity, "capacity", 1000, "storage capacity in units")
	registerHospitalCmd.MarkFlagRequired("name")
	registerHospitalCmd.MarkFlagRequired("registration")

	createRequestCmd.Flags().StringVarP(&RequestQuantity, "quantity", "q", "", "number of units")
	createRequestCmd.Flags().StringVar(&RequestReason, "reason", "", "why the drugs are needed")
	createRequestCmd.Flags().StringVar(&RequestUrgency, "urgency", contract.DefaultUrgency, "urgency, eg. Normal, High or Critical")
	createRequestCmd.MarkFlagRequired("quantity")

	hospitalCmd.AddCommand(registerHospitalCmd)
	hospitalCmd.AddCommand(getHospitalCmd)
	rootCmd.AddCommand(hospitalCmd)

	requestCmd.AddCommand(createRequestCmd)
	requestCmd.AddCommand(answerRequestCmd("approve", "Approve a drug request as a distributor", true))
	requestCmd.AddCommand(answerRequestCmd("reject", "Reject a drug request as a distributor", false))
	requestCmd.AddCommand(getRequestCmd)
	rootCmd.AddCommand(requestCmd)
}
