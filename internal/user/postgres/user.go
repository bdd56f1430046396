package postgres

import (
	"fmt"
	"time"

	"github.com/frahmantamala/claim-workflow/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUID(uid string) (*user.User, error) {
	var u user.User
	err := r.db.Where("uid = ?", uid).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByRole matches against the comma separated roles column. The role
// names never contain commas, so a LIKE per position is sufficient.
func (r *UserRepository) FindByRole(role user.Role) ([]*user.User, error) {
	var users []*user.User
	pattern := fmt.Sprintf("%%%s%%", role)
	err := r.db.Where("roles LIKE ?", pattern).
		Order("last_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	// LIKE can overmatch on role names that embed each other, filter exact
	result := users[:0]
	for _, u := range users {
		if u.HasRole(role) {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r *UserRepository) Create(u *user.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) Update(u *user.User) error {
	u.UpdatedAt = time.Now()
	return r.db.Save(u).Error
}
