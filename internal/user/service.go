package user

import (
	"log/slog"
)

// Repository defines the data access methods for the user directory.
type Repository interface {
	GetByUID(uid string) (*User, error)
	GetByEmail(email string) (*User, error)
	FindByRole(role Role) ([]*User, error)
	Create(u *User) error
	Update(u *User) error
}

// Service exposes directory lookups to the workflow: who a user is, what
// roles they hold and who their manager is.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) FindByUID(uid string) (*User, error) {
	u, err := s.repo.GetByUID(uid)
	if err != nil {
		s.logger.Debug("user not found", "uid", uid, "error", err)
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) FindByEmail(email string) (*User, error) {
	u, err := s.repo.GetByEmail(email)
	if err != nil {
		s.logger.Debug("user not found", "email", email, "error", err)
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) FindUsersByRole(role Role) ([]*User, error) {
	return s.repo.FindByRole(role)
}

// ManagersExcluding lists everyone who can be assigned as a claim's
// manager, minus the requesting user. Used to populate the assignment
// dropdown when routing a claim out of DRAFT.
func (s *Service) ManagersExcluding(uid string) ([]*User, error) {
	managers, err := s.repo.FindByRole(RoleProf)
	if err != nil {
		return nil, err
	}

	result := make([]*User, 0, len(managers))
	for _, m := range managers {
		if m.UID != uid {
			result = append(result, m)
		}
	}
	return result, nil
}

// ManagerOf resolves the directory-assigned manager of a user, if any.
func (s *Service) ManagerOf(u *User) (*User, error) {
	if u.ManagerUID == nil || *u.ManagerUID == "" {
		s.logger.Warn("no manager configured for user", "uid", u.UID)
		return nil, ErrUserNotFound
	}
	return s.FindByUID(*u.ManagerUID)
}
