package claim

import (
	"time"

	"github.com/frahmantamala/claim-workflow/internal/document"
	"github.com/google/uuid"
)

// ItemState is the two-step line item lifecycle: items are created in
// "initial" and move to "successfully_created" on the first update, where
// they stay.
type ItemState string

const (
	ItemStateInitial ItemState = "initial"
	ItemStateCreated ItemState = "successfully_created"
)

// LineItem is a single expense entry. It exists only inside its claim and
// cascades with it; the calculated amount is fixed at write time from the
// original amount and the exchange rate.
type LineItem struct {
	ID               int64              `json:"-" gorm:"primaryKey"`
	UID              string             `json:"uid" gorm:"column:uid;uniqueIndex;not null"`
	ClaimID          int64              `json:"-" gorm:"column:claim_id;not null"`
	ItemDate         time.Time          `json:"item_date" gorm:"column:item_date;not null"`
	State            ItemState          `json:"state" gorm:"column:state;not null"`
	CostCategory     string             `json:"cost_category" gorm:"column:cost_category"`
	Explanation      string             `json:"explanation" gorm:"column:explanation"`
	Currency         string             `json:"currency" gorm:"column:currency"`
	ExchangeRate     float64            `json:"exchange_rate" gorm:"column:exchange_rate"`
	OriginalAmount   float64            `json:"original_amount" gorm:"column:original_amount"`
	CalculatedAmount float64            `json:"calculated_amount" gorm:"column:calculated_amount"`
	Project          string             `json:"project" gorm:"column:project"`
	AttachmentID     *int64             `json:"-" gorm:"column:attachment_id"`
	Attachment       *document.Document `json:"attachment,omitempty" gorm:"foreignKey:AttachmentID"`
	CreatedAt        time.Time          `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"column:updated_at"`
}

func (LineItem) TableName() string {
	return "claim_items"
}

func NewLineItem(date time.Time, costCategory, explanation, currency string, exchangeRate, originalAmount float64, project string) *LineItem {
	return &LineItem{
		UID:              uuid.NewString(),
		ItemDate:         date,
		State:            ItemStateInitial,
		CostCategory:     costCategory,
		Explanation:      explanation,
		Currency:         currency,
		ExchangeRate:     exchangeRate,
		OriginalAmount:   originalAmount,
		CalculatedAmount: originalAmount * exchangeRate,
		Project:          project,
	}
}

// Update rewrites the item fields and unconditionally marks the item
// successfully created. There is no further lifecycle beyond this.
func (i *LineItem) Update(date time.Time, costCategory, explanation, currency string, exchangeRate, originalAmount float64, project string) {
	i.State = ItemStateCreated
	i.ItemDate = date
	i.CostCategory = costCategory
	i.Explanation = explanation
	i.Currency = currency
	i.ExchangeRate = exchangeRate
	i.OriginalAmount = originalAmount
	i.CalculatedAmount = originalAmount * exchangeRate
	i.Project = project
}

// AttachReceipt validates the upload against the attachment size band and
// stores it. Re-uploads replace the previous scan; the band applies every
// time because there is no signing semantics on receipts.
func (i *LineItem) AttachReceipt(contentType string, size int64, content []byte, minSize, maxSize int64) error {
	if err := document.CanAttach(size, minSize, maxSize); err != nil {
		return err
	}

	if i.Attachment == nil {
		i.Attachment = document.New(document.KindAttachment, contentType, size, content)
		return nil
	}
	i.Attachment.Replace(contentType, size, content)
	return nil
}
