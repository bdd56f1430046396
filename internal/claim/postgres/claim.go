package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/claim-workflow/internal/claim"
)

// ClaimRepository implements claim.Repository on GORM. Save carries the
// optimistic concurrency check: the version column must still match the
// loaded value or the write is refused with ErrClaimConflict.
type ClaimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Create(c *claim.Claim) error {
	return r.db.Create(c).Error
}

func (r *ClaimRepository) GetByUID(uid string) (*claim.Claim, error) {
	var c claim.Claim
	err := r.db.
		Preload("Items").
		Preload("Items.Attachment").
		Preload("SignedPDF").
		Where("uid = ?", uid).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, claim.ErrClaimNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save writes the claim and its owned rows in one transaction. The claim
// row update is guarded by the version the caller loaded; zero rows
// affected means another writer got there first.
func (r *ClaimRepository) Save(c *claim.Claim) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if c.SignedPDF != nil {
			if err := tx.Save(c.SignedPDF).Error; err != nil {
				return err
			}
			c.SignedPDFID = &c.SignedPDF.ID
		}

		for _, item := range c.Items {
			item.ClaimID = c.ID
			if item.Attachment != nil {
				if err := tx.Save(item.Attachment).Error; err != nil {
					return err
				}
				item.AttachmentID = &item.Attachment.ID
			}
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}

		loadedVersion := c.Version
		c.Version++
		c.UpdatedAt = time.Now()

		result := tx.Model(&claim.Claim{}).
			Where("uid = ? AND version = ?", c.UID, loadedVersion).
			Updates(map[string]interface{}{
				"claim_date":        c.ClaimDate,
				"state":             c.State,
				"finance_admin_uid": c.FinanceAdminUID,
				"manager_uid":       c.ManagerUID,
				"accounting":        c.Accounting,
				"reject_comment":    c.RejectComment,
				"signed_pdf_id":     c.SignedPDFID,
				"version":           c.Version,
				"updated_at":        c.UpdatedAt,
			})
		if result.Error != nil {
			c.Version = loadedVersion
			return result.Error
		}
		if result.RowsAffected == 0 {
			c.Version = loadedVersion
			return claim.ErrClaimConflict
		}
		return nil
	})
}

func (r *ClaimRepository) DeleteItem(item *claim.LineItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uid = ?", item.UID).Delete(&claim.LineItem{}).Error; err != nil {
			return err
		}
		if item.Attachment != nil {
			return tx.Delete(item.Attachment).Error
		}
		return nil
	})
}

func (r *ClaimRepository) FindBySubmitter(submitterUID string) ([]*claim.Claim, error) {
	var claims []*claim.Claim
	err := r.db.
		Preload("Items").
		Where("submitter_uid = ?", submitterUID).
		Order("created_at DESC").
		Find(&claims).Error
	return claims, err
}

func (r *ClaimRepository) FindByState(state claim.State) ([]*claim.Claim, error) {
	var claims []*claim.Claim
	err := r.db.
		Preload("Items").
		Where("state = ?", state).
		Order("created_at ASC").
		Find(&claims).Error
	return claims, err
}

// The Count methods implement notification.Counter for digest rendering.

func (r *ClaimRepository) CountForFinanceAdmin(uid string, state claim.State) (int64, error) {
	var count int64
	err := r.db.Model(&claim.Claim{}).
		Where("finance_admin_uid = ? AND state = ?", uid, state).
		Count(&count).Error
	return count, err
}

func (r *ClaimRepository) CountForManager(uid string, state claim.State) (int64, error) {
	var count int64
	err := r.db.Model(&claim.Claim{}).
		Where("manager_uid = ? AND state = ?", uid, state).
		Count(&count).Error
	return count, err
}

func (r *ClaimRepository) CountForSubmitter(uid string, state claim.State) (int64, error) {
	var count int64
	err := r.db.Model(&claim.Claim{}).
		Where("submitter_uid = ? AND state = ?", uid, state).
		Count(&count).Error
	return count, err
}

// CountInStateExcluding sizes the shared assignment pool for one
// recipient. Their own submissions are excluded; those already show up
// in the submitter counts.
func (r *ClaimRepository) CountInStateExcluding(state claim.State, excludeUID string) (int64, error) {
	var count int64
	err := r.db.Model(&claim.Claim{}).
		Where("state = ? AND submitter_uid <> ?", state, excludeUID).
		Count(&count).Error
	return count, err
}
