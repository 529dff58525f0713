package auth

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a closed set: every value a session can carry is listed here.
type Role uint8

const (
	RoleAdmin Role = iota
	RoleManufacturer
	RoleDistributor
	RoleHospital
	RolePatient
	RolePublicUser
	RoleGuest
)

var roleNames = [...]string{
	RoleAdmin:        "admin",
	RoleManufacturer: "manufacturer",
	RoleDistributor:  "distributor",
	RoleHospital:     "hospital",
	RolePatient:      "patient",
	RolePublicUser:   "public_user",
	RoleGuest:        "guest",
}

var rolePermissions = [...]PermissionSet{
	RoleAdmin: NewPermissionSet(
		PermManageUsers, PermViewAllData, PermSystemConfig, PermCreateBatch,
		PermTransferBatch, PermDispenseDrug, PermVerifyBatch, PermAIForecasting,
	),
	RoleManufacturer: NewPermissionSet(PermCreateBatch, PermGenerateQR, PermAIForecasting),
	RoleDistributor:  NewPermissionSet(PermTransferBatch, PermTrackInventory, PermAIForecasting),
	RoleHospital: NewPermissionSet(
		PermDispenseDrug, PermVerifyBatch, PermPatientManagement, PermAIForecasting, PermHealthRecords,
	),
	RolePatient:    NewPermissionSet(PermAIForecasting),
	RolePublicUser: NewPermissionSet(PermVerifyDrug, PermViewPublicData),
	RoleGuest:      NewPermissionSet(PermVerifyDrug),
}

// AllRoles lists the roles in declaration order.
func AllRoles() []Role {
	result := make([]Role, 0, len(roleNames))
	for i := range roleNames {
		result = append(result, Role(i))
	}
	return result
}

func (r Role) Valid() bool {
	return int(r) < len(roleNames)
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// Title is the human readable name, e.g. "Public User".
func (r Role) Title() string {
	return cases.Title(language.English).String(strings.ReplaceAll(r.String(), "_", " "))
}

// Permissions returns the fixed permission set of the role.
func (r Role) Permissions() PermissionSet {
	if !r.Valid() {
		return PermissionSet(0)
	}
	return rolePermissions[r]
}

// IsSupplyChainActor reports whether the role moves drugs along the chain.
func (r Role) IsSupplyChainActor() bool {
	switch r {
	case RoleManufacturer, RoleDistributor, RoleHospital:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
