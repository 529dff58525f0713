package auth

import (
	"encoding/json"
	"fmt"
)

type Permission uint8

const (
	PermManageUsers Permission = iota
	PermViewAllData
	PermSystemConfig
	PermCreateBatch
	PermTransferBatch
	PermDispenseDrug
	PermVerifyBatch
	PermAIForecasting
	PermGenerateQR
	PermTrackInventory
	PermPatientManagement
	PermHealthRecords
	PermVerifyDrug
	PermViewPublicData
)

var permissionNames = [...]string{
	PermManageUsers:       "manage_users",
	PermViewAllData:       "view_all_data",
	PermSystemConfig:      "system_config",
	PermCreateBatch:       "create_batch",
	PermTransferBatch:     "transfer_batch",
	PermDispenseDrug:      "dispense_drug",
	PermVerifyBatch:       "verify_batch",
	PermAIForecasting:     "ai_forecasting",
	PermGenerateQR:        "generate_qr",
	PermTrackInventory:    "track_inventory",
	PermPatientManagement: "patient_management",
	PermHealthRecords:     "health_records",
	PermVerifyDrug:        "verify_drug",
	PermViewPublicData:    "view_public_data",
}

func (p Permission) Valid() bool {
	return int(p) < len(permissionNames)
}

func (p Permission) String() string {
	if !p.Valid() {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return permissionNames[p]
}

func ParsePermission(s string) (Permission, error) {
	for i, name := range permissionNames {
		if name == s {
			return Permission(i), nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", s)
}

func (p Permission) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid permission %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PermissionSet is a bitset of permissions. It encodes to JSON as the list
// of permission names.
type PermissionSet uint32

func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= 1 << p
	}
	return s
}

func (s PermissionSet) Has(p Permission) bool {
	return p.Valid() && s&(1<<p) != 0
}

func (s PermissionSet) List() []Permission {
	result := []Permission{}
	for i := range permissionNames {
		if s.Has(Permission(i)) {
			result = append(result, Permission(i))
		}
	}
	return result
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}
