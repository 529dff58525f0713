package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sahilm/fuzzy"
)

var ErrUnauthorizedAddress = errors.New("address is not authorized")

// RoleEntry is what the allow-list knows about an address.
type RoleEntry struct {
	Address     common.Address
	Role        Role
	DisplayName string
}

// RoleTable maps allow-listed addresses to their role. It is never mutated
// after construction.
type RoleTable struct {
	entries []RoleEntry
	byAddr  map[common.Address]RoleEntry
}

func NewRoleTable(entries ...RoleEntry) *RoleTable {
	t := &RoleTable{
		entries: make([]RoleEntry, 0, len(entries)),
		byAddr:  map[common.Address]RoleEntry{},
	}
	for _, e := range entries {
		if _, found := t.byAddr[e.Address]; found {
			panic(fmt.Sprintf("address %s is listed twice", e.Address.Hex()))
		}
		t.entries = append(t.entries, e)
		t.byAddr[e.Address] = e
	}
	return t
}

// DefaultRoleTable holds the first five hardhat development accounts.
var DefaultRoleTable = NewRoleTable(
	RoleEntry{common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), RoleAdmin, "System Administrator"},
	RoleEntry{common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), RoleManufacturer, "PharmaCorp Manufacturing"},
	RoleEntry{common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"), RoleDistributor, "Global Distribution Network"},
	RoleEntry{common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"), RoleHospital, "City General Hospital"},
	RoleEntry{common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65"), RolePatient, "Patient Services"},
)

func (t *RoleTable) Lookup(addr common.Address) (RoleEntry, bool) {
	e, found := t.byAddr[addr]
	return e, found
}

// Entries returns the allow-list in its declaration order.
func (t *RoleTable) Entries() []RoleEntry {
	return append([]RoleEntry(nil), t.entries...)
}

// ByRole returns the first allow-listed address holding role.
func (t *RoleTable) ByRole(role Role) (RoleEntry, bool) {
	for _, e := range t.entries {
		if e.Role == role {
			return e, true
		}
	}
	return RoleEntry{}, false
}

// UnauthorizedAddressError carries the allow-list so callers can tell the
// user which accounts would work.
type UnauthorizedAddressError struct {
	Address common.Address
	Allowed []RoleEntry
}

func (e *UnauthorizedAddressError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnauthorizedAddress, e.Address.Hex())
}

func (e *UnauthorizedAddressError) Unwrap() error {
	return ErrUnauthorizedAddress
}

type Resolver struct {
	table *RoleTable
}

func NewResolver(table *RoleTable) *Resolver {
	return &Resolver{table: table}
}

func (r *Resolver) Table() *RoleTable {
	return r.table
}

// ResolveWalletAddress returns the allow-list entry of addr. Addresses are
// compared as 20 byte values so checksum casing never matters.
func (r *Resolver) ResolveWalletAddress(addr common.Address) (RoleEntry, error) {
	e, found := r.table.Lookup(addr)
	if !found {
		return RoleEntry{}, &UnauthorizedAddressError{Address: addr, Allowed: r.table.Entries()}
	}
	return e, nil
}

// ResolveString is ResolveWalletAddress for user input.
func (r *Resolver) ResolveString(s string) (RoleEntry, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return RoleEntry{}, fmt.Errorf("%q is not a hex address", s)
	}
	return r.ResolveWalletAddress(common.HexToAddress(s))
}

// roleSource feeds role names and titles to the fuzzy matcher.
type roleSource []string

func (s roleSource) String(i int) string { return s[i] }
func (s roleSource) Len() int            { return len(s) }

// FindRole matches a loose hint such as "manu" or "public user" to a role.
func FindRole(hint string) (Role, error) {
	if role, err := ParseRole(strings.ReplaceAll(hint, " ", "_")); err == nil {
		return role, nil
	}
	roles := AllRoles()
	source := make(roleSource, 0, len(roles))
	for _, r := range roles {
		source = append(source, strings.ReplaceAll(r.String(), "_", " "))
	}
	matches := fuzzy.FindFrom(strings.ToLower(hint), source)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no role matches %q", hint)
	}
	return roles[matches[0].Index], nil
}
