package claim

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/claim-workflow/internal"
	"github.com/frahmantamala/claim-workflow/internal/core/events"
	"github.com/frahmantamala/claim-workflow/internal/user"
)

// Repository defines the data access methods for claims. Save must detect
// lost updates on the version column and report ErrClaimConflict.
type Repository interface {
	Create(c *Claim) error
	GetByUID(uid string) (*Claim, error)
	Save(c *Claim) error
	DeleteItem(item *LineItem) error
	FindBySubmitter(submitterUID string) ([]*Claim, error)
	FindByState(state State) ([]*Claim, error)
}

// Directory resolves users and their roles for routing decisions.
type Directory interface {
	FindByUID(uid string) (*user.User, error)
}

// partySelector picks, for one state, the user who must act next. The
// dispatch is a fixed table over all non-terminal states, not recomputed
// logic: draft and signing-by-owner states point at the submitter,
// manager states at the assigned manager, the rest at the finance admin.
type partySelector func(c *Claim) (uid string, ok bool)

var responsibleParty = map[State]partySelector{
	StateDraft:                  func(c *Claim) (string, bool) { return c.SubmitterUID, true },
	StateToSignByUser:           func(c *Claim) (string, bool) { return c.SubmitterUID, true },
	StateSigned:                 func(c *Claim) (string, bool) { return c.SubmitterUID, true },
	StateAssignedToProf:         managerParty,
	StateToSignByProf:           managerParty,
	StateToBeAssigned:           func(c *Claim) (string, bool) { return c.FinanceAdminUID, true },
	StateAssignedToFinanceAdmin: func(c *Claim) (string, bool) { return c.FinanceAdminUID, true },
	StateToSignByFinanceAdmin:   func(c *Claim) (string, bool) { return c.FinanceAdminUID, true },
}

func managerParty(c *Claim) (string, bool) {
	if c.ManagerUID != nil && *c.ManagerUID != "" {
		return *c.ManagerUID, true
	}
	return "", false
}

// Service orchestrates claim mutations: it runs the guards and state
// machines, keeps the derived total consistent and publishes the events
// that feed the notification digest queue.
type Service struct {
	repo      Repository
	directory Directory
	bus       *events.EventBus
	docCfg    internal.DocumentConfig
	logger    *slog.Logger
}

func NewService(repo Repository, directory Directory, bus *events.EventBus, docCfg internal.DocumentConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		bus:       bus,
		docCfg:    docCfg,
		logger:    logger,
	}
}

// CreateClaim opens a claim in DRAFT for the submitter. Nobody is
// notified yet; the first notification fires when the claim leaves DRAFT.
func (s *Service) CreateClaim(submitterUID string, dto CreateClaimDTO) (*Claim, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("claim validation failed", "error", err, "submitter_uid", submitterUID)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if _, err := s.directory.FindByUID(dto.FinanceAdminUID); err != nil {
		s.logger.Error("finance admin not found", "finance_admin_uid", dto.FinanceAdminUID)
		return nil, err
	}

	c := NewClaim(submitterUID, dto.ClaimDate, dto.FinanceAdminUID, dto.Accounting)
	if err := s.repo.Create(c); err != nil {
		s.logger.Error("failed to create claim", "error", err, "submitter_uid", submitterUID)
		return nil, err
	}

	s.logger.Info("claim created",
		"claim_uid", c.UID,
		"submitter_uid", submitterUID,
		"state", c.State)

	return c, nil
}

func (s *Service) GetClaim(uid string) (*Claim, error) {
	return s.repo.GetByUID(uid)
}

func (s *Service) ClaimsForSubmitter(submitterUID string) ([]*Claim, error) {
	return s.repo.FindBySubmitter(submitterUID)
}

func (s *Service) UpdateClaim(uid string, dto UpdateClaimDTO) (*Claim, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByUID(uid)
	if err != nil {
		return nil, err
	}

	c.ClaimDate = dto.ClaimDate
	c.Accounting = dto.Accounting
	if dto.ManagerUID != nil {
		if _, err := s.directory.FindByUID(*dto.ManagerUID); err != nil {
			return nil, err
		}
		c.ManagerUID = dto.ManagerUID
	}

	if err := s.repo.Save(c); err != nil {
		s.logger.Error("failed to update claim", "error", err, "claim_uid", uid)
		return nil, err
	}
	return c, nil
}

// AddItem appends a line item in its initial state. The claim total is
// derived, so persisting the item is all that is needed to move it; the
// new total is logged for traceability.
func (s *Service) AddItem(claimUID string, dto LineItemDTO) (*LineItem, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return nil, err
	}

	item := NewLineItem(dto.ItemDate, dto.CostCategory, dto.Explanation, dto.Currency, dto.ExchangeRate, dto.OriginalAmount, dto.Project)
	c.Items = append(c.Items, item)

	if err := s.repo.Save(c); err != nil {
		s.logger.Error("failed to add claim item", "error", err, "claim_uid", claimUID)
		return nil, err
	}

	s.logger.Info("claim item added",
		"claim_uid", claimUID,
		"item_uid", item.UID,
		"calculated_amount", item.CalculatedAmount,
		"total_amount", c.TotalAmount())

	return item, nil
}

func (s *Service) UpdateItem(claimUID, itemUID string, dto LineItemDTO) (*LineItem, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return nil, err
	}

	item, ok := c.ItemByUID(itemUID)
	if !ok {
		return nil, ErrItemNotFound
	}

	item.Update(dto.ItemDate, dto.CostCategory, dto.Explanation, dto.Currency, dto.ExchangeRate, dto.OriginalAmount, dto.Project)

	if err := s.repo.Save(c); err != nil {
		s.logger.Error("failed to update claim item", "error", err, "claim_uid", claimUID, "item_uid", itemUID)
		return nil, err
	}

	s.logger.Info("claim item updated",
		"claim_uid", claimUID,
		"item_uid", itemUID,
		"state", item.State,
		"total_amount", c.TotalAmount())

	return item, nil
}

func (s *Service) DeleteItem(claimUID, itemUID string) error {
	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return err
	}

	item, ok := c.ItemByUID(itemUID)
	if !ok {
		return ErrItemNotFound
	}

	remaining := make([]*LineItem, 0, len(c.Items)-1)
	for _, it := range c.Items {
		if it.UID != itemUID {
			remaining = append(remaining, it)
		}
	}
	c.Items = remaining

	if err := s.repo.DeleteItem(item); err != nil {
		s.logger.Error("failed to delete claim item", "error", err, "claim_uid", claimUID, "item_uid", itemUID)
		return err
	}

	s.logger.Info("claim item deleted",
		"claim_uid", claimUID,
		"item_uid", itemUID,
		"total_amount", c.TotalAmount())

	return nil
}

// AttachItemReceipt stores a scanned receipt on a line item after the
// size-band check. No state transition is involved.
func (s *Service) AttachItemReceipt(claimUID, itemUID string, upload Upload) error {
	if err := upload.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return err
	}

	item, ok := c.ItemByUID(itemUID)
	if !ok {
		return ErrItemNotFound
	}

	if err := item.AttachReceipt(upload.ContentType, upload.Size, upload.Content, s.docCfg.MinAttachmentSize, s.docCfg.MaxAttachmentSize); err != nil {
		s.logger.Warn("receipt rejected by guard",
			"claim_uid", claimUID,
			"item_uid", itemUID,
			"size", upload.Size,
			"error", err)
		return err
	}

	if err := s.repo.Save(c); err != nil {
		return err
	}

	s.logger.Info("receipt attached", "claim_uid", claimUID, "item_uid", itemUID, "size", upload.Size)
	return nil
}

// ExportPDF stores the freshly generated, unsigned claim PDF into the
// signing slot. Rendering happens upstream; the guard only gates the
// signing replacements that follow.
func (s *Service) ExportPDF(claimUID string, upload Upload) error {
	if err := upload.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return err
	}

	c.SetGeneratedPDF(upload.ContentType, upload.Size, upload.Content)

	if err := s.repo.Save(c); err != nil {
		return err
	}

	s.logger.Info("claim pdf exported", "claim_uid", claimUID, "size", upload.Size)
	return nil
}

// UploadSignedPDF is the transition trigger of the workflow: the guard
// validates the replacement, the state machine advances exactly one step
// and the party responsible in the new state is queued for a digest. A
// guard rejection or an undefined transition persists nothing.
func (s *Service) UploadSignedPDF(ctx context.Context, claimUID string, upload Upload) (*Claim, error) {
	if err := upload.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return nil, err
	}

	submitter, err := s.directory.FindByUID(c.SubmitterUID)
	if err != nil {
		return nil, err
	}

	if err := c.SignPDF(submitter.Roles(), upload.ContentType, upload.Size, upload.Content, s.docCfg.MaxUploadSize); err != nil {
		s.logger.Warn("signed upload rejected",
			"claim_uid", claimUID,
			"state", c.State,
			"size", upload.Size,
			"error", err)
		return nil, err
	}

	if err := s.repo.Save(c); err != nil {
		s.logger.Error("failed to persist signed claim", "error", err, "claim_uid", claimUID)
		return nil, err
	}

	s.logger.Info("claim advanced",
		"claim_uid", c.UID,
		"state", c.State,
		"total_amount", c.TotalAmount())

	s.notifyResponsibleParty(ctx, c)
	return c, nil
}

// RejectClaim moves the claim to REJECTED from whatever state it is in,
// stores the comment and queues the submitter for a digest.
func (s *Service) RejectClaim(ctx context.Context, claimUID string, dto RejectClaimDTO) (*Claim, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeMissingComment)
	}

	c, err := s.repo.GetByUID(claimUID)
	if err != nil {
		return nil, err
	}

	c.Reject(dto.Comment)

	if err := s.repo.Save(c); err != nil {
		s.logger.Error("failed to persist rejected claim", "error", err, "claim_uid", claimUID)
		return nil, err
	}

	s.logger.Info("claim rejected", "claim_uid", c.UID, "comment", dto.Comment)

	if err := s.bus.PublishSync(ctx, events.NewClaimRejectedEvent(c.UID, c.SubmitterUID, dto.Comment)); err != nil {
		// notification failure never rolls back the workflow mutation
		s.logger.Error("failed to publish claim rejected event", "error", err, "claim_uid", c.UID)
	}

	return c, nil
}

func (s *Service) notifyResponsibleParty(ctx context.Context, c *Claim) {
	selector, ok := responsibleParty[c.State]
	if !ok {
		if !c.IsTerminal() {
			s.logger.Error("no responsible party mapped for state", "claim_uid", c.UID, "state", c.State)
		}
		return
	}

	uid, ok := selector(c)
	if !ok {
		s.logger.Warn("responsible party unresolved", "claim_uid", c.UID, "state", c.State)
		return
	}

	if err := s.bus.PublishSync(ctx, events.NewClaimStateChangedEvent(c.UID, string(c.State), uid)); err != nil {
		s.logger.Error("failed to publish state change event", "error", err, "claim_uid", c.UID)
	}
}
