package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultUrgency is used when a request doesn't name one.
const DefaultUrgency = "Normal"

type NewHospital struct {
	Address            common.Address
	Name               string
	RegistrationNumber string
	Type               HospitalType
	StockThreshold     *big.Int
	Capacity           *big.Int
}

func (p *Proxy) RegisterHospital(ctx context.Context, h NewHospital) (*types.Receipt, error) {
	return p.transact(
		ctx,
		fmt.Sprintf("%s (%s)", h.Name, h.Address.Hex()),
		"registerHospital",
		h.Address,
		h.Name,
		h.RegistrationNumber,
		uint8(h.Type),
		bigOrZero(h.StockThreshold),
		bigOrZero(h.Capacity),
	)
}

func (p *Proxy) GetHospital(ctx context.Context, hospital common.Address) (Hospital, error) {
	out, err := p.call(ctx, "getHospital", hospital)
	if err != nil {
		return Hospital{}, err
	}
	raw := *abi.ConvertType(out[0], new(rawHospital)).(*rawHospital)
	if raw.HospitalAddress == (common.Address{}) {
		return Hospital{}, fmt.Errorf("hospital %s: %w", hospital.Hex(), ErrNotFound)
	}
	return raw.toHospital(), nil
}

// CalculatePriority returns the contract's allocation priority score for
// a hospital, higher is served first.
func (p *Proxy) CalculatePriority(ctx context.Context, hospital common.Address) (*big.Int, error) {
	out, err := p.call(ctx, "calculatePriority", hospital)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

type NewRequest struct {
	Distributor common.Address
	BatchID     uint64
	Quantity    *big.Int
	Reason      string
	Urgency     string
}

func (p *Proxy) RequestDrugs(ctx context.Context, r NewRequest) (*types.Receipt, error) {
	urgency := r.Urgency
	if urgency == "" {
		urgency = DefaultUrgency
	}
	return p.transact(
		ctx,
		fmt.Sprintf("batch #%d x%s from %s", r.BatchID, bigOrZero(r.Quantity), r.Distributor.Hex()),
		"requestDrugs",
		r.Distributor,
		new(big.Int).SetUint64(r.BatchID),
		bigOrZero(r.Quantity),
		r.Reason,
		urgency,
	)
}

func (p *Proxy) ApproveRequest(ctx context.Context, requestID uint64) (*types.Receipt, error) {
	return p.transact(ctx, fmt.Sprintf("request #%d", requestID), "approveRequest", new(big.Int).SetUint64(requestID))
}

func (p *Proxy) RejectRequest(ctx context.Context, requestID uint64) (*types.Receipt, error) {
	return p.transact(ctx, fmt.Sprintf("request #%d", requestID), "rejectRequest", new(big.Int).SetUint64(requestID))
}

func (p *Proxy) GetDrugRequest(ctx context.Context, requestID uint64) (DrugRequest, error) {
	out, err := p.call(ctx, "getDrugRequest", new(big.Int).SetUint64(requestID))
	if err != nil {
		return DrugRequest{}, err
	}
	raw := *abi.ConvertType(out[0], new(rawDrugRequest)).(*rawDrugRequest)
	if raw.RequestId == nil || raw.RequestId.Sign() == 0 {
		return DrugRequest{}, fmt.Errorf("request #%d: %w", requestID, ErrNotFound)
	}
	return raw.toDrugRequest(), nil
}

// DrugHash is the WHO list key of a drug code.
func DrugHash(drugCode string) common.Hash {
	return crypto.Keccak256Hash([]byte(drugCode))
}

func (p *Proxy) AddWHOApprovedDrug(ctx context.Context, drugHash common.Hash) (*types.Receipt, error) {
	return p.transact(ctx, drugHash.Hex(), "addWHOApprovedDrug", [32]byte(drugHash))
}

func (p *Proxy) RemoveWHOApprovedDrug(ctx context.Context, drugHash common.Hash) (*types.Receipt, error) {
	return p.transact(ctx, drugHash.Hex(), "removeWHOApprovedDrug", [32]byte(drugHash))
}

func (p *Proxy) IsWHOApproved(ctx context.Context, drugHash common.Hash) (bool, error) {
	out, err := p.call(ctx, "isWHOApproved", [32]byte(drugHash))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (p *Proxy) UpdateHealthRecord(ctx context.Context, patient common.Address, ipfsHash string) (*types.Receipt, error) {
	return p.transact(ctx, fmt.Sprintf("%s record %s", patient.Hex(), ipfsHash), "updateHealthRecord", patient, ipfsHash)
}

func (p *Proxy) GetHealthRecord(ctx context.Context, patient common.Address) (HealthRecord, error) {
	out, err := p.call(ctx, "getHealthRecord", patient)
	if err != nil {
		return HealthRecord{}, err
	}
	hash := *abi.ConvertType(out[0], new(string)).(*string)
	if hash == "" {
		return HealthRecord{}, fmt.Errorf("health record of %s: %w", patient.Hex(), ErrNotFound)
	}
	return HealthRecord{Patient: patient, IPFSHash: hash}, nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
