package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tranvictor/medchain/auth"
)

// contractRoles is the order roles are checked in.
var contractRoles = []auth.Role{
	auth.RoleManufacturer,
	auth.RoleDistributor,
	auth.RoleHospital,
	auth.RolePatient,
	auth.RoleAdmin,
}

var roleGetters = map[auth.Role]string{
	auth.RoleAdmin:        "ADMIN_ROLE",
	auth.RoleManufacturer: "MANUFACTURER_ROLE",
	auth.RoleDistributor:  "DISTRIBUTOR_ROLE",
	auth.RoleHospital:     "HOSPITAL_ROLE",
	auth.RolePatient:      "PATIENT_ROLE",
}

var roleGranters = map[auth.Role]string{
	auth.RoleManufacturer: "grantManufacturerRole",
	auth.RoleDistributor:  "grantDistributorRole",
	auth.RoleHospital:     "grantHospitalRole",
	auth.RolePatient:      "grantPatientRole",
}

type SampleAccount struct {
	Address common.Address
	Name    string
	ID      string
}

// SampleAccounts are the hardhat accounts the demo setup grants roles to.
var SampleAccounts = struct {
	Manufacturer SampleAccount
	Distributor  SampleAccount
	Hospital     SampleAccount
	Patients     []SampleAccount
}{
	Manufacturer: SampleAccount{Address: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), Name: "MedTech Industries"},
	Distributor:  SampleAccount{Address: common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"), Name: "Global Medical Distributors"},
	Hospital:     SampleAccount{Address: common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"), Name: "City General Hospital"},
	Patients: []SampleAccount{
		{Address: common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65"), Name: "John Doe", ID: "P001"},
		{Address: common.HexToAddress("0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc"), Name: "Jane Smith", ID: "P002"},
		{Address: common.HexToAddress("0x976EA74026E726554dB657fA54763abd0C3a0aa9"), Name: "Robert Johnson", ID: "P003"},
		{Address: common.HexToAddress("0x14dC79964da2C08b23698B3D3cc7Ca32193d9955"), Name: "Emily Davis", ID: "P004"},
		{Address: common.HexToAddress("0x23618e81E3f5cdF7f54C3d65f7FBc0aBf5B21E8f"), Name: "Michael Wilson", ID: "P005"},
	},
}

func (p *Proxy) HasRole(ctx context.Context, role auth.Role, account common.Address) (bool, error) {
	b, err := p.binding()
	if err != nil {
		return false, err
	}
	id, found := b.roles[role]
	if !found {
		return false, fmt.Errorf("the contract has no %s role", role)
	}
	out, err := p.call(ctx, "hasRole", [32]byte(id), account)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// CheckUserRole returns the first on-chain role account holds. found is
// false when it holds none.
func (p *Proxy) CheckUserRole(ctx context.Context, account common.Address) (role auth.Role, found bool, err error) {
	for _, r := range contractRoles {
		has, err := p.HasRole(ctx, r, account)
		if err != nil {
			return 0, false, err
		}
		if has {
			return r, true, nil
		}
	}
	return 0, false, nil
}

// GrantRole grants one of the grantable roles. Admin is fixed at deploy
// time.
func (p *Proxy) GrantRole(ctx context.Context, role auth.Role, account common.Address) (*types.Receipt, error) {
	method, found := roleGranters[role]
	if !found {
		return nil, fmt.Errorf("role %s can't be granted", role)
	}
	return p.transact(ctx, fmt.Sprintf("%s role to %s", role, account.Hex()), method, account)
}

// SetupAllRoles grants the demo roles to SampleAccounts. A failing patient
// grant is logged and the others still go through.
func (p *Proxy) SetupAllRoles(ctx context.Context) ([]*types.Receipt, error) {
	receipts := []*types.Receipt{}
	for _, grant := range []struct {
		role    auth.Role
		account SampleAccount
	}{
		{auth.RoleManufacturer, SampleAccounts.Manufacturer},
		{auth.RoleDistributor, SampleAccounts.Distributor},
		{auth.RoleHospital, SampleAccounts.Hospital},
	} {
		receipt, err := p.GrantRole(ctx, grant.role, grant.account.Address)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
	}
	for _, patient := range SampleAccounts.Patients {
		receipt, err := p.GrantRole(ctx, auth.RolePatient, patient.Address)
		if err != nil {
			log.Warn("Couldn't grant patient role", "patient", patient.Name, "address", patient.Address, "err", err)
			continue
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}
