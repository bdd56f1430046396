package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Receiver is one pending digest recipient. The uid column is unique, so
// the pending set survives restarts without ever holding duplicates.
type Receiver struct {
	ID        int64     `gorm:"primaryKey"`
	UserUID   string    `gorm:"column:user_uid;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Receiver) TableName() string {
	return "email_receivers"
}

type ReceiverStore struct {
	db *gorm.DB
}

func NewReceiverStore(db *gorm.DB) *ReceiverStore {
	return &ReceiverStore{db: db}
}

func (s *ReceiverStore) Add(uid string) (bool, error) {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_uid"}},
		DoNothing: true,
	}).Create(&Receiver{UserUID: uid})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *ReceiverStore) All() ([]string, error) {
	var receivers []Receiver
	if err := s.db.Order("created_at asc").Find(&receivers).Error; err != nil {
		return nil, err
	}

	uids := make([]string, len(receivers))
	for i, r := range receivers {
		uids[i] = r.UserUID
	}
	return uids, nil
}

func (s *ReceiverStore) Remove(uid string) error {
	return s.db.Where("user_uid = ?", uid).Delete(&Receiver{}).Error
}
