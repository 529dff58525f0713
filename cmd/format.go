package cmd

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tranvictor/medchain/auth"
	"github.com/tranvictor/medchain/contract"
	"github.com/tranvictor/medchain/ui"
	"github.com/tranvictor/medchain/wallet"
)

// formatUnits renders an integer amount with decimals digits as a decimal
// string without trailing zeros, eg. 1500000000000000000 wei as "1.5".
func formatUnits(v *big.Int, decimals uint64) string {
	if v == nil {
		return "0"
	}
	s := new(big.Int).Abs(v).String()
	if uint64(len(s)) <= decimals {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	intPart, frac := s[:len(s)-int(decimals)], strings.TrimRight(s[len(s)-int(decimals):], "0")
	if v.Sign() < 0 {
		intPart = "-" + intPart
	}
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func parseUint(s string, what string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, s)
	}
	return v, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be a positive integer, got %q", s)
	}
	return v, nil
}

// parseExpiry accepts a date (2026-12-31) or a duration from now (180d,
// 4380h).
func parseExpiry(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if days, found := strings.CutSuffix(s, "d"); found {
		n, err := strconv.Atoi(days)
		if err == nil && n > 0 {
			return now.AddDate(0, 0, n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(d), nil
	}
	return time.Time{}, fmt.Errorf("expiry must be a date like 2026-12-31 or a duration like 365d, got %q", s)
}

func statusStyle(s contract.BatchStatus) ui.StyledText {
	switch s {
	case contract.StatusDispensed:
		return ui.StyledText{Text: s.String(), Severity: ui.SeveritySuccess}
	case contract.StatusExpired:
		return ui.StyledText{Text: s.String(), Severity: ui.SeverityError}
	}
	return ui.StyledText{Text: s.String()}
}

// holderName labels allow-listed addresses with their display name.
func holderName(addr common.Address) string {
	if e, found := auth.DefaultRoleTable.Lookup(addr); found {
		return fmt.Sprintf("%s (%s)", wallet.ShortAddress(addr), e.DisplayName)
	}
	return wallet.ShortAddress(addr)
}

func batchRows(u ui.UI, batches []contract.DrugBatch) [][]string {
	rows := make([][]string, 0, len(batches))
	now := time.Now()
	for _, b := range batches {
		status := statusStyle(b.Status)
		if b.Status != contract.StatusExpired && b.IsExpired(now) {
			status = ui.StyledText{Text: "Expired", Severity: ui.SeverityWarn}
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", b.ID),
			b.DrugName,
			b.Quantity.String(),
			u.Style(status),
			holderName(b.CurrentHolder),
			formatDate(b.ExpiryDate),
		})
	}
	return rows
}

var batchHeaders = []string{"Batch", "Drug", "Quantity", "Status", "Holder", "Expires"}

func showBatch(u ui.UI, b contract.DrugBatch) {
	u.Section(fmt.Sprintf("Drug batch #%d", b.ID))
	u.KeyValue([][2]string{
		{"Drug", b.DrugName},
		{"Code", b.DrugCode},
		{"Approval", b.RegulatoryApproval},
		{"Quantity", b.Quantity.String()},
		{"Status", u.Style(statusStyle(b.Status))},
		{"Manufacturer", holderName(b.Manufacturer)},
		{"Holder", holderName(b.CurrentHolder)},
		{"Manufactured", formatDate(b.ManufactureDate)},
		{"Expires", formatDate(b.ExpiryDate)},
		{"Merkle root", b.MerkleRoot.Hex()},
		{"Document", b.IPFSHash},
	})
}

func showReceipt(u ui.UI, what string, r *types.Receipt) {
	u.Success("%s", what)
	u.Critical("Tx %s mined in block %s (gas used %d)", r.TxHash.Hex(), r.BlockNumber, r.GasUsed)
}
