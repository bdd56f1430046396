package claim

import (
	"errors"
	"time"
)

// CreateClaimDTO is the request payload for opening a new claim.
type CreateClaimDTO struct {
	ClaimDate       time.Time `json:"claim_date"`
	FinanceAdminUID string    `json:"finance_admin_uid"`
	Accounting      string    `json:"accounting"`
}

func (dto CreateClaimDTO) Validate() error {
	if dto.ClaimDate.IsZero() {
		return errors.New("claim date is required")
	}
	if dto.FinanceAdminUID == "" {
		return errors.New("finance admin is required")
	}
	return nil
}

// UpdateClaimDTO carries editable claim header fields. The manager
// assignment is set here while the claim is routed through its manager.
type UpdateClaimDTO struct {
	ClaimDate  time.Time `json:"claim_date"`
	Accounting string    `json:"accounting"`
	ManagerUID *string   `json:"manager_uid,omitempty"`
}

func (dto UpdateClaimDTO) Validate() error {
	if dto.ClaimDate.IsZero() {
		return errors.New("claim date is required")
	}
	return nil
}

// LineItemDTO is shared by item create and update requests.
type LineItemDTO struct {
	ItemDate       time.Time `json:"item_date"`
	CostCategory   string    `json:"cost_category"`
	Explanation    string    `json:"explanation"`
	Currency       string    `json:"currency"`
	ExchangeRate   float64   `json:"exchange_rate"`
	OriginalAmount float64   `json:"original_amount"`
	Project        string    `json:"project"`
}

func (dto LineItemDTO) Validate() error {
	if dto.ItemDate.IsZero() {
		return errors.New("item date is required")
	}
	if dto.ItemDate.After(time.Now()) {
		return errors.New("item date cannot be in the future")
	}
	if dto.CostCategory == "" {
		return errors.New("cost category is required")
	}
	if dto.Currency == "" {
		return errors.New("currency is required")
	}
	if dto.ExchangeRate <= 0 {
		return errors.New("exchange rate must be positive")
	}
	if dto.OriginalAmount <= 0 {
		return errors.New("original amount must be positive")
	}
	return nil
}

// RejectClaimDTO is the request payload for rejecting a claim.
type RejectClaimDTO struct {
	Comment string `json:"comment"`
}

func (dto RejectClaimDTO) Validate() error {
	if dto.Comment == "" {
		return errors.New("comment is required when rejecting a claim")
	}
	return nil
}

// Upload is the decoded multipart file handed to the document operations.
type Upload struct {
	ContentType string
	Size        int64
	Content     []byte
}

func (u Upload) Validate() error {
	if u.Size <= 0 || len(u.Content) == 0 {
		return errors.New("uploaded file is empty")
	}
	if u.ContentType == "" {
		return errors.New("content type is required")
	}
	return nil
}
