package user

import (
	"strings"
	"time"

	"github.com/frahmantamala/claim-workflow/internal"
)

// Role mirrors the directory roles that drive claim routing. A user may
// hold several at once (a professor who is also head of institute).
type Role string

const (
	RoleUser              Role = "USER"
	RoleProf              Role = "PROF"
	RoleDepartmentManager Role = "DEPARTMENT_MANAGER"
	RoleHeadOfInstitute   Role = "HEAD_OF_INSTITUTE"
	RoleFinanceAdmin      Role = "FINANCE_ADMIN"
)

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UID          string    `json:"uid" gorm:"column:uid;uniqueIndex;not null"`
	FirstName    string    `json:"first_name" gorm:"column:first_name"`
	LastName     string    `json:"last_name" gorm:"column:last_name"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	ManagerUID   *string   `json:"manager_uid,omitempty" gorm:"column:manager_uid"`
	RolesCSV     string    `json:"-" gorm:"column:roles"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Roles decodes the stored role list. The directory sync writes roles as a
// comma separated column, same shape the LDAP import delivers them in.
func (u *User) Roles() []Role {
	if u.RolesCSV == "" {
		return nil
	}
	parts := strings.Split(u.RolesCSV, ",")
	roles := make([]Role, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, Role(p))
		}
	}
	return roles
}

func (u *User) SetRoles(roles []Role) {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	u.RolesCSV = strings.Join(parts, ",")
}

func (u *User) HasRole(role Role) bool {
	return HasRole(u.Roles(), role)
}

func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// IsSelfApproving reports whether the user's claims skip manager
// assignment: professors and finance admins approve their own drafts.
func (u *User) IsSelfApproving() bool {
	return u.HasAnyRole(RoleProf, RoleFinanceAdmin)
}

// IsManagerRole reports whether the user acts as a manager in the signing
// chain (checks and signs claims assigned to them).
func (u *User) IsManagerRole() bool {
	return u.HasAnyRole(RoleProf, RoleDepartmentManager, RoleHeadOfInstitute)
}

func (u *User) IsFinanceAdmin() bool {
	return u.HasRole(RoleFinanceAdmin)
}

func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

var ErrUserNotFound = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
