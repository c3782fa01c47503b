package entity

import (
	"strconv"
	"strings"
)

// Role is the bitmask of roles an actor claims when performing a transition.
// The ledger records the claim for off-chain audit; it never checks it.
type Role uint64

const (
	RoleRequester      Role = 1 << 0
	RoleApprover       Role = 1 << 1
	RoleSeniorApprover Role = 1 << 2
	RoleAdmin          Role = 1 << 3
	RoleAuditor        Role = 1 << 4
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleRequester, "REQUESTER"},
	{RoleApprover, "APPROVER"},
	{RoleSeniorApprover, "SENIOR_APPROVER"},
	{RoleAdmin, "ADMIN"},
	{RoleAuditor, "AUDITOR"},
}

// Has reports whether every bit of r is set in the mask
func (m Role) Has(r Role) bool {
	return m&r == r
}

// String renders the mask as "APPROVER|AUDITOR"; unknown bits are kept as hex
func (m Role) String() string {
	if m == 0 {
		return "NONE"
	}
	var parts []string
	rest := m
	for _, rn := range roleNames {
		if m.Has(rn.role) {
			parts = append(parts, rn.name)
			rest &^= rn.role
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(parts, "|")
}
