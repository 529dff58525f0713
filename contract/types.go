package contract

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type BatchStatus uint8

const (
	StatusManufactured BatchStatus = iota
	StatusWithDistributor
	StatusWithHospital
	StatusDispensed
	StatusExpired
)

func (s BatchStatus) String() string {
	switch s {
	case StatusManufactured:
		return "Manufactured"
	case StatusWithDistributor:
		return "WithDistributor"
	case StatusWithHospital:
		return "WithHospital"
	case StatusDispensed:
		return "Dispensed"
	case StatusExpired:
		return "Expired"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

type HospitalType uint8

const (
	HospitalUrban HospitalType = iota
	HospitalRural
	HospitalRemote
)

func (t HospitalType) String() string {
	switch t {
	case HospitalUrban:
		return "Urban"
	case HospitalRural:
		return "Rural"
	case HospitalRemote:
		return "Remote"
	}
	return fmt.Sprintf("HospitalType(%d)", uint8(t))
}

func ParseHospitalType(s string) (HospitalType, error) {
	for _, t := range []HospitalType{HospitalUrban, HospitalRural, HospitalRemote} {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown hospital type %q, expected urban, rural or remote", s)
}

type RequestStatus uint8

const (
	RequestPending RequestStatus = iota
	RequestApproved
	RequestRejected
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "Pending"
	case RequestApproved:
		return "Approved"
	case RequestRejected:
		return "Rejected"
	}
	return fmt.Sprintf("RequestStatus(%d)", uint8(s))
}

type DrugBatch struct {
	ID                 uint64
	DrugName           string
	DrugCode           string
	RegulatoryApproval string
	Manufacturer       common.Address
	MerkleRoot         common.Hash
	IPFSHash           string
	Quantity           *big.Int
	ManufactureDate    time.Time
	ExpiryDate         time.Time
	Status             BatchStatus
	CurrentHolder      common.Address
}

func (b DrugBatch) IsExpired(now time.Time) bool {
	return b.Status == StatusExpired || (!b.ExpiryDate.IsZero() && now.After(b.ExpiryDate))
}

type Hospital struct {
	Address            common.Address
	Name               string
	RegistrationNumber string
	Type               HospitalType
	StockThreshold     *big.Int
	Capacity           *big.Int
	StockCount         *big.Int
	IsActive           bool
}

type DrugRequest struct {
	ID          uint64
	Hospital    common.Address
	Distributor common.Address
	BatchID     uint64
	Quantity    *big.Int
	Reason      string
	Urgency     string
	Status      RequestStatus
	Timestamp   time.Time
}

type ExpiredReport struct {
	ID               uint64
	BatchID          uint64
	Reporter         common.Address
	EvidenceIPFSHash string
	Timestamp        time.Time
	Verified         bool
}

type HealthRecord struct {
	Patient  common.Address
	IPFSHash string
}

// TransferKind tells whether an account created a batch or received it.
type TransferKind string

const (
	TransferCreated  TransferKind = "created"
	TransferReceived TransferKind = "received"
)

type TransferRecord struct {
	DrugBatch
	Kind TransferKind
}

// The raw structs mirror the contract's tuples field by field so
// abi.ConvertType can fill them.
type rawDrugBatch struct {
	BatchId            *big.Int
	DrugName           string
	DrugCode           string
	RegulatoryApproval string
	Manufacturer       common.Address
	MerkleRoot         [32]byte
	IpfsHash           string
	Quantity           *big.Int
	ManufactureDate    *big.Int
	ExpiryDate         *big.Int
	Status             uint8
	CurrentHolder      common.Address
}

type rawHospital struct {
	HospitalAddress    common.Address
	Name               string
	RegistrationNumber string
	HospitalType       uint8
	StockThreshold     *big.Int
	Capacity           *big.Int
	StockCount         *big.Int
	IsActive           bool
}

type rawDrugRequest struct {
	RequestId   *big.Int
	Hospital    common.Address
	Distributor common.Address
	BatchId     *big.Int
	Quantity    *big.Int
	Reason      string
	Urgency     string
	Status      uint8
	Timestamp   *big.Int
}

type rawExpiredReport struct {
	ReportId         *big.Int
	BatchId          *big.Int
	Reporter         common.Address
	EvidenceIpfsHash string
	Timestamp        *big.Int
	Verified         bool
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}

func toUint64(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}

func (r rawDrugBatch) toDrugBatch() DrugBatch {
	return DrugBatch{
		ID:                 toUint64(r.BatchId),
		DrugName:           r.DrugName,
		DrugCode:           r.DrugCode,
		RegulatoryApproval: r.RegulatoryApproval,
		Manufacturer:       r.Manufacturer,
		MerkleRoot:         common.Hash(r.MerkleRoot),
		IPFSHash:           r.IpfsHash,
		Quantity:           r.Quantity,
		ManufactureDate:    unixTime(r.ManufactureDate),
		ExpiryDate:         unixTime(r.ExpiryDate),
		Status:             BatchStatus(r.Status),
		CurrentHolder:      r.CurrentHolder,
	}
}

func (r rawHospital) toHospital() Hospital {
	return Hospital{
		Address:            r.HospitalAddress,
		Name:               r.Name,
		RegistrationNumber: r.RegistrationNumber,
		Type:               HospitalType(r.HospitalType),
		StockThreshold:     r.StockThreshold,
		Capacity:           r.Capacity,
		StockCount:         r.StockCount,
		IsActive:           r.IsActive,
	}
}

func (r rawDrugRequest) toDrugRequest() DrugRequest {
	return DrugRequest{
		ID:          toUint64(r.RequestId),
		Hospital:    r.Hospital,
		Distributor: r.Distributor,
		BatchID:     toUint64(r.BatchId),
		Quantity:    r.Quantity,
		Reason:      r.Reason,
		Urgency:     r.Urgency,
		Status:      RequestStatus(r.Status),
		Timestamp:   unixTime(r.Timestamp),
	}
}

func (r rawExpiredReport) toExpiredReport() ExpiredReport {
	return ExpiredReport{
		ID:               toUint64(r.ReportId),
		BatchID:          toUint64(r.BatchId),
		Reporter:         r.Reporter,
		EvidenceIPFSHash: r.EvidenceIpfsHash,
		Timestamp:        unixTime(r.Timestamp),
		Verified:         r.Verified,
	}
}
