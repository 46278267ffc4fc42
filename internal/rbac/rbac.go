// Package rbac holds the static role to permission table used by the
// authorization middleware. The table is fixed at compile time and is safe
// for concurrent reads.
package rbac

import "strings"

// Role is the tag stored on every user record.
type Role string

const (
	RolePresident Role = "PRESIDENT"
	RoleSecretary Role = "SECRETARY"
	RoleTreasurer Role = "TREASURER"
	RoleMember    Role = "MEMBER"
	RoleAuditor   Role = "AUDITOR"
)

// Permission is a capability drawn from a closed set.
type Permission string

const (
	CreateUser      Permission = "CREATE_USER"
	ReadUser        Permission = "READ_USER"
	UpdateUser      Permission = "UPDATE_USER"
	DeleteUser      Permission = "DELETE_USER"
	CreateCommittee Permission = "CREATE_COMMITTEE"
	ReadCommittee   Permission = "READ_COMMITTEE"
	UpdateCommittee Permission = "UPDATE_COMMITTEE"
	DeleteCommittee Permission = "DELETE_COMMITTEE"
	CreateAccount   Permission = "CREATE_ACCOUNT"
	ReadAccount     Permission = "READ_ACCOUNT"
	UpdateAccount   Permission = "UPDATE_ACCOUNT"
	DeleteAccount   Permission = "DELETE_ACCOUNT"
	ViewReports     Permission = "VIEW_REPORTS"
	ExportReports   Permission = "EXPORT_REPORTS"
	CreateReports   Permission = "CREATE_REPORTS"
	EnterData       Permission = "ENTER_DATA"
	EditData        Permission = "EDIT_DATA"
	DeleteData      Permission = "DELETE_DATA"
)

// wildcard grants every permission. Only PRESIDENT carries it.
const wildcard Permission = "*"

var allRoles = []Role{RolePresident, RoleSecretary, RoleTreasurer, RoleMember, RoleAuditor}

var allPermissions = []Permission{
	CreateUser, ReadUser, UpdateUser, DeleteUser,
	CreateCommittee, ReadCommittee, UpdateCommittee, DeleteCommittee,
	CreateAccount, ReadAccount, UpdateAccount, DeleteAccount,
	ViewReports, ExportReports, CreateReports,
	EnterData, EditData, DeleteData,
}

var rolePermissions = map[Role][]Permission{
	RolePresident: {wildcard},
	RoleSecretary: {ReadUser, ReadCommittee, ReadAccount, EnterData, EditData, ViewReports},
	RoleTreasurer: {ReadAccount, CreateAccount, UpdateAccount, ViewReports, ExportReports, EnterData},
	RoleMember:    {ReadUser, ReadCommittee, ViewReports},
	RoleAuditor:   {ReadUser, ReadCommittee, ReadAccount, ViewReports, ExportReports},
}

var roleDescriptions = map[Role]string{
	RolePresident: "Full Control - Manage all aspects of the organization",
	RoleSecretary: "Data Entry & View - Enter and view organizational data",
	RoleTreasurer: "Accounts Only - Manage financial accounts and transactions",
	RoleMember:    "View Only - View organizational information",
	RoleAuditor:   "View & Export - View and export reports and data",
}

// Roles returns every known role in display order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Permissions returns the full closed permission set.
func Permissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

func (r Role) String() string { return string(r) }

// PermissionsOf returns the permissions granted to role. The wildcard is
// expanded. Unknown roles get an empty slice.
func PermissionsOf(role Role) []Permission {
	granted, ok := rolePermissions[role]
	if !ok {
		return []Permission{}
	}
	if len(granted) == 1 && granted[0] == wildcard {
		return Permissions()
	}
	out := make([]Permission, len(granted))
	copy(out, granted)
	return out
}

// HasPermission reports whether role is granted perm. Permissions outside
// the closed set are never granted, not even by the wildcard.
func HasPermission(role Role, perm Permission) bool {
	if !perm.Valid() {
		return false
	}
	for _, p := range rolePermissions[role] {
		if p == wildcard || p == perm {
			return true
		}
	}
	return false
}

// Valid reports whether p belongs to the closed permission set.
func (p Permission) Valid() bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}

func (p Permission) String() string { return string(p) }

// Description returns the human readable summary of role, or "" when the
// role is unknown.
func Description(role Role) string {
	return roleDescriptions[role]
}
