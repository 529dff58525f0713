package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/merkle"
	"github.com/tranvictor/medchain/tracking"
	"github.com/tranvictor/medchain/ui"
	"github.com/tranvictor/medchain/wallet"
)

var (
	BatchQuantity   string
	DispenseCount   string
	BatchExpiry     string
	BatchCode       string
	BatchApproval   string
	BatchDocument   string
	BatchItems      []string
	BatchItemsFile  string
	BatchLogVerify  bool
	BatchEvidence   string
	BatchTransferTo string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Create, move and verify drug batches",
}

// readItems collects the unit identifiers of a batch from --item flags and
// the --items file, one identifier per line.
func readItems() ([][]byte, error) {
	items := [][]byte{}
	for _, item := range BatchItems {
		items = append(items, []byte(strings.TrimSpace(item)))
	}
	if BatchItemsFile != "" {
		content, err := os.ReadFile(BatchItemsFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read items file: %w", err)
		}
		for _, line := range strings.Split(string(content), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				items = append(items, []byte(line))
			}
		}
	}
	return items, nil
}

var createBatchCmd = &cobra.Command{
	Use:   "create <drug name>",
	Short: "Create a drug batch as a manufacturer",
	Long: `Creates a drug batch owned by the connected manufacturer.

Without --item or --items the batch is auto approved, has an empty Merkle root
and points to the default document. With them, every item (eg. a unit serial
number) becomes a leaf of the batch's Merkle tree so each unit can later be
verified with medchain batch verify.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantity, err := parseAmount(BatchQuantity)
		if err != nil {
			return err
		}
		expiry, err := parseExpiry(BatchExpiry, time.Now())
		if err != nil {
			return err
		}
		items, err := readItems()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermCreateBatch); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}

			nb := contract.NewBatch{
				DrugName:           args[0],
				DrugCode:           BatchCode,
				RegulatoryApproval: BatchApproval,
				IPFSHash:           BatchDocument,
				Quantity:           quantity,
				ExpiryDate:         expiry,
			}
			if nb.DrugCode == "" {
				nb.DrugCode = contract.DrugCode(nb.DrugName)
			}
			if len(items) > 0 {
				tree, err := merkle.FromItems(items)
				if err != nil {
					return err
				}
				nb.MerkleRoot = tree.Root()
				appUI.Info("Merkle root over %d items: %s", len(items), nb.MerkleRoot.Hex())
			}

			appUI.Critical("Creating %s x%s, code %s, expiring %s", nb.DrugName, nb.Quantity, nb.DrugCode, formatDate(nb.ExpiryDate))
			receipt, err := p.CreateDrugBatch(ctx, nb)
			if err != nil {
				return err
			}
			id, err := p.GetCurrentBatchID(ctx)
			if err != nil {
				showReceipt(appUI, "Batch created", receipt)
				return nil
			}
			showReceipt(appUI, fmt.Sprintf("Batch #%d created", id), receipt)
			return nil
		})
	},
}

var listBatchCmd = &cobra.Command{
	Use:   "list",
	Short: "List drug batches",
	Long: `Lists every batch. With --mine only the batches relevant to the connected
account are listed: those it manufactured, or those it holds as a distributor
or a hospital.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mine, _ := cmd.Flags().GetBool("mine")
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			stop := appUI.Spinner("Reading batches")
			batches, err := listBatches(ctx, a, p, mine)
			stop()
			if err != nil {
				return err
			}
			if len(batches) == 0 {
				appUI.Info("No batches")
				return nil
			}
			appUI.Table(batchHeaders, batchRows(appUI, batches))
			return nil
		})
	},
}

func listBatches(ctx context.Context, a *app, p *contract.Proxy, mine bool) ([]contract.DrugBatch, error) {
	if !mine {
		return p.GetAllBatches(ctx)
	}
	account, err := p.Account()
	if err != nil {
		return nil, err
	}
	session, _ := a.auth.Current()
	switch session.Role {
	case auth.RoleManufacturer:
		return p.GetManufacturerBatches(ctx, account)
	case auth.RoleDistributor:
		return p.GetDistributorBatches(ctx, account)
	case auth.RoleHospital:
		return p.GetHospitalBatches(ctx, account)
	}
	return nil, fmt.Errorf("--mine needs a manufacturer, distributor or hospital session")
}

var getBatchCmd = &cobra.Command{
	Use:   "get <batch id>",
	Short: "Show one drug batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "batch id")
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			b, err := p.GetDrugBatch(ctx, id)
			if err != nil {
				return err
			}
			showBatch(appUI, b)
			if b.Status != contract.StatusExpired && b.IsExpired(time.Now()) {
				appUI.Warn("This batch is past its expiry date, report it with medchain batch report-expired %d", b.ID)
			}
			return nil
		})
	},
}

var transferBatchCmd = &cobra.Command{
	Use:   "transfer <batch id> <address>",
	Short: "Move a batch down the supply chain",
	Long: `Manufacturers transfer their batches to a distributor, distributors transfer
them on to a hospital. Admins pick the direction with --to distributor or
--to hospital.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "batch id")
		if err != nil {
			return err
		}
		to, err := wallet.ParseAddress(args[1])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.requireRole("transfer batches", auth.RoleManufacturer, auth.RoleDistributor, auth.RoleAdmin); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			session, _ := a.auth.Current()
			toHospital := session.Role == auth.RoleDistributor
			if session.Role == auth.RoleAdmin {
				switch strings.ToLower(BatchTransferTo) {
				case "distributor":
				case "hospital":
					toHospital = true
				default:
					return errors.New("admins must pass --to distributor or --to hospital")
				}
			}

			appUI.Critical("Transferring batch #%d to %s", id, holderName(to))
			if toHospital {
				receipt, err := p.TransferToHospital(ctx, id, to)
				if err != nil {
					return err
				}
				showReceipt(appUI, fmt.Sprintf("Batch #%d is with the hospital", id), receipt)
				return nil
			}
			receipt, err := p.TransferToDistributor(ctx, id, to)
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("Batch #%d is with the distributor", id), receipt)
			return nil
		})
	},
}

var dispenseCmd = &cobra.Command{
	Use:   "dispense <batch id> <patient address>",
	Short: "Dispense units of a batch to a patient",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "batch id")
		if err != nil {
			return err
		}
		patient, err := wallet.ParseAddress(args[1])
		if err != nil {
			return err
		}
		quantity, err := parseAmount(DispenseCount)
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermDispenseDrug); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			appUI.Critical("Dispensing %s units of batch #%d to %s", quantity, id, holderName(patient))
			receipt, err := p.DispenseToPatient(ctx, id, patient, quantity)
			if err != nil {
				return err
			}
			showReceipt(appUI, "Dispensed", receipt)
			return nil
		})
	},
}

var verifyBatchCmd = &cobra.Command{
	Use:   "verify <batch id|tracking code> [item]",
	Short: "Verify that an item belongs to a batch",
	Long: `Checks an item (eg. the serial number printed on a unit) against the batch's
Merkle root. The proof is built from the full item list given with --items or
--item, the same list the batch was created with. With --log the
verification is recorded on chain.

The batch may be given as the tracking code scanned from the package QR code.
The code is checked against the batch on chain, the item is then optional.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scanned *tracking.Payload
		id, err := parseUint(args[0], "batch id")
		if err != nil {
			payload, terr := tracking.Decode(args[0])
			if terr != nil || payload.Batch() == 0 {
				return fmt.Errorf("%q is neither a batch id nor a tracking code", args[0])
			}
			id, scanned = payload.Batch(), &payload
		}
		if len(args) < 2 && scanned == nil {
			return errors.New("pass the item to verify")
		}

		var (
			leaf  common.Hash
			proof []common.Hash
			root  common.Hash
		)
		if len(args) == 2 {
			items, err := readItems()
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return errors.New("pass the batch item list with --items or --item")
			}
			tree, err := merkle.FromItems(items)
			if err != nil {
				return err
			}
			leaf = merkle.Leaf([]byte(strings.TrimSpace(args[1])))
			if proof, err = tree.Proof(leaf); err != nil {
				return fmt.Errorf("%q: %w", args[1], err)
			}
			root = tree.Root()
		}

		return withApp(func(ctx context.Context, a *app) error {
			if !a.auth.HasPermission(auth.PermVerifyDrug) && !a.auth.HasPermission(auth.PermVerifyBatch) {
				return errors.New("log in first, even guests can verify drugs: medchain login guest")
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			b, err := p.GetDrugBatch(ctx, id)
			if err != nil {
				return err
			}
			if scanned != nil {
				if err := checkTracking(appUI, *scanned, b, time.Now()); err != nil {
					return err
				}
			}
			if len(args) < 2 {
				return nil
			}
			if b.MerkleRoot != root {
				appUI.Warn("The item list doesn't match batch #%d's Merkle root", id)
			}
			ok, err := p.VerifyDrug(ctx, id, leaf, proof)
			if err != nil {
				return err
			}
			if !ok {
				appUI.Error("%s is NOT part of batch #%d", args[1], id)
				return nil
			}
			appUI.Success("%s is part of batch #%d (%s)", args[1], id, b.DrugName)
			if BatchLogVerify {
				receipt, err := p.VerifyAndLog(ctx, id, leaf, proof)
				if err != nil {
					return err
				}
				showReceipt(appUI, "Verification recorded", receipt)
			}
			return nil
		})
	},
}

// checkTracking compares a scanned tracking code with the batch on chain.
func checkTracking(u ui.UI, t tracking.Payload, b contract.DrugBatch, now time.Time) error {
	if err := tracking.Validate(t, b.ID, now); err != nil {
		return err
	}
	if t.DrugName != b.DrugName || !strings.EqualFold(t.Manufacturer, b.Manufacturer.Hex()) {
		return fmt.Errorf("%w: the code names %s by %s, batch #%d is %s by %s",
			tracking.ErrInvalid, t.DrugName, t.Manufacturer, b.ID, b.DrugName, b.Manufacturer.Hex())
	}
	u.Success("Tracking code issued %s matches batch #%d (%s)", formatDate(t.Issued()), b.ID, b.DrugName)
	return nil
}

var qrBatchCmd = &cobra.Command{
	Use:   "qr <batch id>",
	Short: "Print the tracking QR code of a batch",
	Long: `Prints the QR code to put on the batch packaging and the tracking code it
carries. Scan it and pass the code to medchain batch verify. Codes are valid
for a year.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "batch id")
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermGenerateQR); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			b, err := p.GetDrugBatch(ctx, id)
			if err != nil {
				return err
			}
			_, err = showTracking(appUI, b, time.Now())
			return err
		})
	},
}

// showTracking prints the tracking code of b with its QR code.
func showTracking(u ui.UI, b contract.DrugBatch, now time.Time) (string, error) {
	code, err := tracking.Encode(tracking.New(b, now))
	if err != nil {
		return "", err
	}
	qr, err := tracking.QR(code)
	if err != nil {
		return "", err
	}
	u.Section(fmt.Sprintf("Batch #%d", b.ID))
	fmt.Fprint(u.Writer(), qr)
	u.KeyValue([][2]string{
		{"Drug", b.DrugName},
		{"Manufacturer", holderName(b.Manufacturer)},
		{"Manufactured", formatDate(b.ManufactureDate)},
		{"Tracking code", code},
	})
	return code, nil
}

var historyCmd = &cobra.Command{
	Use:   "history [address]",
	Short: "Show the batches an account created or received",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			account, err := accountArg(p, args)
			if err != nil {
				return err
			}
			records, err := p.GetTransferHistory(ctx, account)
			if err != nil {
				return err
			}
			var created, received [][]string
			for _, r := range records {
				row := batchRows(appUI, []contract.DrugBatch{r.DrugBatch})[0]
				if r.Kind == contract.TransferCreated {
					created = append(created, row)
				} else {
					received = append(received, row)
				}
			}
			appUI.Section("History of " + holderName(account))
			appUI.Info("%d created, %d received", len(created), len(received))
			groups := [][][]string{}
			for _, g := range [][][]string{created, received} {
				if len(g) > 0 {
					groups = append(groups, g)
				}
			}
			if len(groups) > 0 {
				appUI.TableWithGroups(batchHeaders, groups)
			}
			return nil
		})
	},
}

// accountArg is the address argument, or the connected account.
func accountArg(p *contract.Proxy, args []string) (common.Address, error) {
	if len(args) > 0 {
		return wallet.ParseAddress(args[0])
	}
	return p.Account()
}

var patientBatchesCmd = &cobra.Command{
	Use:   "patient [address]",
	Short: "Show the batches dispensed to a patient",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			patient, err := accountArg(p, args)
			if err != nil {
				return err
			}
			ids, err := p.GetPatientBatches(ctx, patient)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				appUI.Info("Nothing was dispensed to %s", holderName(patient))
				return nil
			}
			batches := make([]contract.DrugBatch, 0, len(ids))
			for _, id := range ids {
				b, err := p.GetDrugBatch(ctx, id)
				if err != nil {
					return err
				}
				batches = append(batches, b)
			}
			appUI.Table(batchHeaders, batchRows(appUI, batches))
			return nil
		})
	},
}

var reportExpiredCmd = &cobra.Command{
	Use:   "report-expired <batch id>",
	Short: "Report an expired batch with evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "batch id")
		if err != nil {
			return err
		}
		if strings.TrimSpace(BatchEvidence) == "" {
			return errors.New("--evidence is required, pass the IPFS hash of the evidence")
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.requireRole("report expired drugs", auth.RoleManufacturer, auth.RoleDistributor, auth.RoleHospital, auth.RoleAdmin); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			receipt, err := p.ReportExpiredDrug(ctx, id, BatchEvidence)
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("Batch #%d reported as expired", id), receipt)
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <report id>",
	Short: "Show an expired drug report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "report id")
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			r, err := p.GetExpiredReport(ctx, id)
			if err != nil {
				return err
			}
			verified := ui.StyledText{Text: "pending", Severity: ui.SeverityWarn}
			if r.Verified {
				verified = ui.StyledText{Text: "verified", Severity: ui.SeveritySuccess}
			}
			appUI.KeyValue([][2]string{
				{"Report", fmt.Sprintf("#%d", r.ID)},
				{"Batch", fmt.Sprintf("#%d", r.BatchID)},
				{"Reporter", holderName(r.Reporter)},
				{"Evidence", r.EvidenceIPFSHash},
				{"Reported", r.Timestamp.Local().Format(time.DateTime)},
				{"Status", appUI.Style(verified)},
			})
			return nil
		})
	},
}

var verifyReportCmd = &cobra.Command{
	Use:   "verify-report <report id>",
	Short: "Confirm an expired drug report as an admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUint(args[0], "report id")
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.require(auth.PermSystemConfig); err != nil {
				return err
			}
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			receipt, err := p.VerifyExpiredReport(ctx, id)
			if err != nil {
				return err
			}
			showReceipt(appUI, fmt.Sprintf("Report #%d verified", id), receipt)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <event>",
	Short: "Print contract events as they happen",
	Long:  "Streams one contract event until interrupted. Events: " + strings.Join(contract.EventNames(), ", "),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.contract(ctx)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			events := make(chan contract.Event)
			done := make(chan error, 1)
			go func() { done <- p.WatchEvents(ctx, args[0], events) }()
			appUI.Info("Watching %s, press Ctrl+C to stop", args[0])
			for {
				select {
				case ev := <-events:
					rows := [][2]string{{"Block", fmt.Sprintf("%d", ev.Log.BlockNumber)}, {"Tx", ev.Log.TxHash.Hex()}}
					for _, name := range eventFieldNames(ev) {
						rows = append(rows, [2]string{name, fmt.Sprintf("%v", ev.Fields[name])})
					}
					appUI.Section(ev.Name)
					appUI.KeyValue(rows)
				case err := <-done:
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
			}
		})
	},
}

func eventFieldNames(ev contract.Event) []string {
	names := make([]string, 0, len(ev.Fields))
	for name := range ev.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	createBatchCmd.Flags().StringVarP(&BatchQuantity, "quantity", "q", "", "number of units in the batch")
	createBatchCmd.Flags().StringVarP(&BatchExpiry, "expiry", "e", "365d", "expiry date (2026-12-31) or time from now (180d)")
	createBatchCmd.Flags().StringVar(&BatchCode, "code", "", "drug code (default derived from the name)")
	createBatchCmd.Flags().StringVar(&BatchApproval, "approval", contract.AutoApproval, "regulatory approval reference")
	createBatchCmd.Flags().StringVar(&BatchDocument, "document", contract.DefaultIPFSHash, "IPFS hash of the batch document")
	createBatchCmd.Flags().StringSliceVar(&BatchItems, "item", nil, "unit identifier to include in the Merkle tree, repeatable")
	createBatchCmd.Flags().StringVar(&BatchItemsFile, "items", "", "file with one unit identifier per line")
	createBatchCmd.MarkFlagRequired("quantity")

	verifyBatchCmd.Flags().StringSliceVar(&BatchItems, "item", nil, "unit identifier of the batch, repeatable")
	verifyBatchCmd.Flags().StringVar(&BatchItemsFile, "items", "", "file with one unit identifier per line")
	verifyBatchCmd.Flags().BoolVar(&BatchLogVerify, "log", false, "record the verification on chain")

	listBatchCmd.Flags().Bool("mine", false, "only the batches of the connected account")
	transferBatchCmd.Flags().StringVar(&BatchTransferTo, "to", "", "distributor or hospital, admins only")
	dispenseCmd.Flags().StringVarP(&DispenseCount, "quantity", "q", "1", "number of units to dispense")
	reportExpiredCmd.Flags().StringVar(&BatchEvidence, "evidence", "", "IPFS hash of the evidence")

	batchCmd.AddCommand(createBatchCmd)
	batchCmd.AddCommand(listBatchCmd)
	batchCmd.AddCommand(getBatchCmd)
	batchCmd.AddCommand(transferBatchCmd)
	batchCmd.AddCommand(dispenseCmd)
	batchCmd.AddCommand(verifyBatchCmd)
	batchCmd.AddCommand(qrBatchCmd)
	batchCmd.AddCommand(historyCmd)
	batchCmd.AddCommand(patientBatchesCmd)
	batchCmd.AddCommand(reportExpiredCmd)
	batchCmd.AddCommand(reportCmd)
	batchCmd.AddCommand(verifyReportCmd)
	batchCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(batchCmd)
}
