package claim

import (
	"time"

	"github.com/frahmantamala/claim-workflow/internal"
	"github.com/frahmantamala/claim-workflow/internal/document"
	"github.com/frahmantamala/claim-workflow/internal/user"
	"github.com/google/uuid"
)

// State enumerates the claim signing chain. The normal progression is
// linear; REJECTED is a side channel reachable from any active state.
type State string

const (
	StateDraft                  State = "draft"
	StateAssignedToProf         State = "assigned_to_prof"
	StateToBeAssigned           State = "to_be_assigned"
	StateAssignedToFinanceAdmin State = "assigned_to_finance_admin"
	StateToSignByUser           State = "to_sign_by_user"
	StateToSignByProf           State = "to_sign_by_prof"
	StateToSignByFinanceAdmin   State = "to_sign_by_finance_admin"
	StateSigned                 State = "signed"
	StatePrinted                State = "printed"
	StateRejected               State = "rejected"
)

// Claim is a reimbursement request owned by its submitter, carrying the
// line items, the signing-slot PDF and the routing assignments.
type Claim struct {
	ID              int64              `json:"-" gorm:"primaryKey"`
	UID             string             `json:"uid" gorm:"column:uid;uniqueIndex;not null"`
	SubmitterUID    string             `json:"submitter_uid" gorm:"column:submitter_uid;not null"`
	ClaimDate       time.Time          `json:"claim_date" gorm:"column:claim_date;not null"`
	State           State              `json:"state" gorm:"column:state;not null"`
	FinanceAdminUID string             `json:"finance_admin_uid" gorm:"column:finance_admin_uid;not null"`
	ManagerUID      *string            `json:"manager_uid,omitempty" gorm:"column:manager_uid"`
	Accounting      string             `json:"accounting" gorm:"column:accounting"`
	RejectComment   *string            `json:"reject_comment,omitempty" gorm:"column:reject_comment"`
	Version         int64              `json:"-" gorm:"column:version;default:1"`
	SignedPDFID     *int64             `json:"-" gorm:"column:signed_pdf_id"`
	SignedPDF       *document.Document `json:"signed_pdf,omitempty" gorm:"foreignKey:SignedPDFID"`
	Items           []*LineItem        `json:"items" gorm:"foreignKey:ClaimID"`
	CreatedAt       time.Time          `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time          `json:"updated_at" gorm:"column:updated_at"`
}

func (Claim) TableName() string {
	return "claims"
}

func NewClaim(submitterUID string, date time.Time, financeAdminUID, accounting string) *Claim {
	return &Claim{
		UID:             uuid.NewString(),
		SubmitterUID:    submitterUID,
		ClaimDate:       date,
		State:           StateDraft,
		FinanceAdminUID: financeAdminUID,
		Accounting:      accounting,
		Version:         1,
	}
}

// TotalAmount is always derived from the line items, never stored. Every
// caller sees the sum of the current calculated amounts.
func (c *Claim) TotalAmount() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.CalculatedAmount
	}
	return total
}

// NextState returns the successor of the given state for a submitter with
// the given roles. It is a pure function: DRAFT branches on whether the
// submitter's roles are self-approving, everything else is a fixed chain.
func NextState(current State, submitterRoles []user.Role) (State, error) {
	switch current {
	case StateDraft:
		if user.HasRole(submitterRoles, user.RoleProf) || user.HasRole(submitterRoles, user.RoleFinanceAdmin) {
			return StateToBeAssigned, nil
		}
		return StateAssignedToProf, nil
	case StateAssignedToProf:
		return StateToBeAssigned, nil
	case StateToBeAssigned:
		return StateAssignedToFinanceAdmin, nil
	case StateAssignedToFinanceAdmin:
		return StateToSignByUser, nil
	case StateToSignByUser:
		return StateToSignByProf, nil
	case StateToSignByProf:
		return StateToSignByFinanceAdmin, nil
	case StateToSignByFinanceAdmin:
		return StateSigned, nil
	case StateSigned:
		return StatePrinted, nil
	}
	return current, ErrUnexpectedState
}

// Advance moves the claim one step along the chain. The submitter's roles
// are passed in explicitly so the machine stays independent of any session
// or directory lookup. On an undefined source state the claim is left
// untouched and ErrUnexpectedState is returned.
func (c *Claim) Advance(submitterRoles []user.Role) error {
	next, err := NextState(c.State, submitterRoles)
	if err != nil {
		return err
	}
	c.State = next
	return nil
}

// Reject is the unconditional side channel out of the chain. It stores the
// comment alongside the state; the comment is only ever set here.
func (c *Claim) Reject(comment string) {
	c.State = StateRejected
	c.RejectComment = &comment
}

// SignPDF validates the candidate against the signing guard and, only if
// both the guard and the transition are defined, replaces the document
// content and advances the state. A rejected check leaves both the
// document and the state untouched.
func (c *Claim) SignPDF(submitterRoles []user.Role, contentType string, size int64, content []byte, maxSize int64) error {
	if err := document.CanReplaceSigned(c.SignedPDF, size, maxSize); err != nil {
		return err
	}

	next, err := NextState(c.State, submitterRoles)
	if err != nil {
		return err
	}

	c.SignedPDF.Replace(contentType, size, content)
	c.State = next
	return nil
}

// SetGeneratedPDF stores the freshly exported (unsigned) PDF into the
// signing slot. Export regenerates freely; the guard only applies to the
// subsequent signing replacements.
func (c *Claim) SetGeneratedPDF(contentType string, size int64, content []byte) {
	if c.SignedPDF == nil {
		c.SignedPDF = document.New(document.KindGenerated, contentType, size, content)
		return
	}
	c.SignedPDF.Replace(contentType, size, content)
}

// IsTerminal reports whether no further party has to act on the claim.
func (c *Claim) IsTerminal() bool {
	return c.State == StatePrinted || c.State == StateRejected
}

func (c *Claim) ItemByUID(uid string) (*LineItem, bool) {
	for _, item := range c.Items {
		if item.UID == uid {
			return item, true
		}
	}
	return nil, false
}

var (
	ErrClaimNotFound   = internal.NewNotFoundError("Claim not found", internal.ErrCodeClaimNotFound)
	ErrItemNotFound    = internal.NewNotFoundError("Claim item not found", internal.ErrCodeItemNotFound)
	ErrUnexpectedState = internal.NewUnexpectedStateError("claim is in a state with no defined transition")
	ErrClaimConflict   = internal.NewConflictError("claim was modified concurrently, retry the operation", internal.ErrCodeClaimConflict)
)
