package contract

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

const (
	// AutoApproval is the regulatory approval CreateBatch fills in.
	AutoApproval = "AUTO_APPROVED"
	// DefaultIPFSHash is the placeholder document CreateBatch points to.
	DefaultIPFSHash = "QmDefault123"
)

type NewBatch struct {
	DrugName           string
	DrugCode           string
	RegulatoryApproval string
	MerkleRoot         common.Hash
	IPFSHash           string
	Quantity           *big.Int
	ExpiryDate         time.Time
}

func (p *Proxy) CreateDrugBatch(ctx context.Context, b NewBatch) (*types.Receipt, error) {
	if b.Quantity == nil || b.Quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	return p.transact(
		ctx,
		fmt.Sprintf("%s x%s", b.DrugName, b.Quantity),
		"createDrugBatch",
		b.DrugName,
		b.DrugCode,
		b.RegulatoryApproval,
		[32]byte(b.MerkleRoot),
		b.IPFSHash,
		b.Quantity,
		big.NewInt(b.ExpiryDate.Unix()),
	)
}

var whitespace = regexp.MustCompile(`\s+`)

// DrugCode derives the code CreateBatch uses from a drug name.
func DrugCode(drugName string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(drugName)), "_")
}

// CreateBatch is the quick form of CreateDrugBatch: auto approved, empty
// Merkle root and the default document.
func (p *Proxy) CreateBatch(ctx context.Context, drugName string, quantity *big.Int, expiry time.Time) (*types.Receipt, error) {
	return p.CreateDrugBatch(ctx, NewBatch{
		DrugName:           drugName,
		DrugCode:           DrugCode(drugName),
		RegulatoryApproval: AutoApproval,
		IPFSHash:           DefaultIPFSHash,
		Quantity:           quantity,
		ExpiryDate:         expiry,
	})
}

func batchSubject(batchID uint64, to common.Address) string {
	return fmt.Sprintf("batch #%d to %s", batchID, to.Hex())
}

func (p *Proxy) TransferToDistributor(ctx context.Context, batchID uint64, distributor common.Address) (*types.Receipt, error) {
	return p.transact(ctx, batchSubject(batchID, distributor), "transferToDistributor", new(big.Int).SetUint64(batchID), distributor)
}

func (p *Proxy) TransferToHospital(ctx context.Context, batchID uint64, hospital common.Address) (*types.Receipt, error) {
	return p.transact(ctx, batchSubject(batchID, hospital), "transferToHospital", new(big.Int).SetUint64(batchID), hospital)
}

func (p *Proxy) DispenseToPatient(ctx context.Context, batchID uint64, patient common.Address, quantity *big.Int) (*types.Receipt, error) {
	return p.transact(ctx, batchSubject(batchID, patient), "dispenseToPatient", new(big.Int).SetUint64(batchID), patient, quantity)
}

func toBytes32s(hashes []common.Hash) [][32]byte {
	result := make([][32]byte, len(hashes))
	for i, h := range hashes {
		result[i] = [32]byte(h)
	}
	return result
}

// VerifyDrug checks leaf against the batch's Merkle root without writing
// anything on chain.
func (p *Proxy) VerifyDrug(ctx context.Context, batchID uint64, leaf common.Hash, proof []common.Hash) (bool, error) {
	out, err := p.call(ctx, "verifyDrug", new(big.Int).SetUint64(batchID), [32]byte(leaf), toBytes32s(proof))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// VerifyAndLog is VerifyDrug as a transaction, the contract emits
// DrugVerified with the outcome.
func (p *Proxy) VerifyAndLog(ctx context.Context, batchID uint64, leaf common.Hash, proof []common.Hash) (*types.Receipt, error) {
	return p.transact(ctx, fmt.Sprintf("batch #%d leaf %s", batchID, leaf.Hex()), "verifyAndLog", new(big.Int).SetUint64(batchID), [32]byte(leaf), toBytes32s(proof))
}

func (p *Proxy) GetCurrentBatchID(ctx context.Context) (uint64, error) {
	out, err := p.call(ctx, "getCurrentBatchId")
	if err != nil {
		return 0, err
	}
	return toUint64(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)), nil
}

func (p *Proxy) GetDrugBatch(ctx context.Context, batchID uint64) (DrugBatch, error) {
	if batchID == 0 {
		return DrugBatch{}, fmt.Errorf("batch #0: %w", ErrNotFound)
	}
	out, err := p.call(ctx, "getDrugBatch", new(big.Int).SetUint64(batchID))
	if err != nil {
		return DrugBatch{}, err
	}
	raw := *abi.ConvertType(out[0], new(rawDrugBatch)).(*rawDrugBatch)
	if raw.BatchId == nil || raw.BatchId.Sign() == 0 {
		return DrugBatch{}, fmt.Errorf("batch #%d: %w", batchID, ErrNotFound)
	}
	return raw.toDrugBatch(), nil
}

// GetAllBatches reads batches 1..N one by one. Batches that fail to load
// are logged and left out.
func (p *Proxy) GetAllBatches(ctx context.Context) ([]DrugBatch, error) {
	total, err := p.GetCurrentBatchID(ctx)
	if err != nil {
		return nil, err
	}
	batches := []DrugBatch{}
	for id := uint64(1); id <= total; id++ {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		batch, err := p.GetDrugBatch(ctx, id)
		if err != nil {
			log.Warn("Couldn't load batch", "id", id, "err", err)
			continue
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func (p *Proxy) filterBatches(ctx context.Context, keep func(DrugBatch) bool) ([]DrugBatch, error) {
	all, err := p.GetAllBatches(ctx)
	if err != nil {
		return nil, err
	}
	result := []DrugBatch{}
	for _, b := range all {
		if keep(b) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (p *Proxy) GetManufacturerBatches(ctx context.Context, manufacturer common.Address) ([]DrugBatch, error) {
	return p.filterBatches(ctx, func(b DrugBatch) bool {
		return b.Manufacturer == manufacturer
	})
}

func (p *Proxy) GetDistributorBatches(ctx context.Context, distributor common.Address) ([]DrugBatch, error) {
	return p.filterBatches(ctx, func(b DrugBatch) bool {
		return b.CurrentHolder == distributor && b.Status == StatusWithDistributor
	})
}

func (p *Proxy) GetHospitalBatches(ctx context.Context, hospital common.Address) ([]DrugBatch, error) {
	return p.filterBatches(ctx, func(b DrugBatch) bool {
		return b.CurrentHolder == hospital && b.Status == StatusWithHospital
	})
}

// GetTransferHistory lists the batches account created or currently
// holds. A batch account manufactured and still holds counts as created.
func (p *Proxy) GetTransferHistory(ctx context.Context, account common.Address) ([]TransferRecord, error) {
	all, err := p.GetAllBatches(ctx)
	if err != nil {
		return nil, err
	}
	history := []TransferRecord{}
	for _, b := range all {
		switch {
		case b.Manufacturer == account:
			history = append(history, TransferRecord{DrugBatch: b, Kind: TransferCreated})
		case b.CurrentHolder == account:
			history = append(history, TransferRecord{DrugBatch: b, Kind: TransferReceived})
		}
	}
	return history, nil
}

func (p *Proxy) GetPatientBatches(ctx context.Context, patient common.Address) ([]uint64, error) {
	out, err := p.call(ctx, "getPatientBatches", patient)
	if err != nil {
		return nil, err
	}
	ids := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	result := make([]uint64, len(ids))
	for i, id := range ids {
		result[i] = toUint64(id)
	}
	return result, nil
}

func (p *Proxy) ReportExpiredDrug(ctx context.Context, batchID uint64, evidenceIPFSHash string) (*types.Receipt, error) {
	return p.transact(ctx, fmt.Sprintf("batch #%d", batchID), "reportExpiredDrug", new(big.Int).SetUint64(batchID), evidenceIPFSHash)
}

func (p *Proxy) VerifyExpiredReport(ctx context.Context, reportID uint64) (*types.Receipt, error) {
	return p.transact(ctx, fmt.Sprintf("report #%d", reportID), "verifyExpiredReport", new(big.Int).SetUint64(reportID))
}

func (p *Proxy) GetExpiredReport(ctx context.Context, reportID uint64) (ExpiredReport, error) {
	out, err := p.call(ctx, "getExpiredReport", new(big.Int).SetUint64(reportID))
	if err != nil {
		return ExpiredReport{}, err
	}
	raw := *abi.ConvertType(out[0], new(rawExpiredReport)).(*rawExpiredReport)
	if raw.ReportId == nil || raw.ReportId.Sign() == 0 {
		return ExpiredReport{}, fmt.Errorf("report #%d: %w", reportID, ErrNotFound)
	}
	return raw.toExpiredReport(), nil
}
