package user

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/claim-workflow/internal/transport"
	"github.com/frahmantamala/claim-workflow/pkg/logger"
)

type ServiceAPI interface {
	FindByUID(uid string) (*User, error)
	FindUsersByRole(role Role) ([]*User, error)
	ManagersExcluding(uid string) ([]*User, error)
}

// Handler resolves the requesting user through FromCtx instead of the
// auth package directly; auth already imports this package.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	FromCtx func(r *http.Request) (*User, bool)
}

func NewHandler(service ServiceAPI, fromCtx func(r *http.Request) (*User, bool)) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		FromCtx:     fromCtx,
	}
}

// GetMe returns the authenticated user's directory record.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, ok := h.FromCtx(r)
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ListManagers returns the pick list for manager assignment, excluding
// the requesting user so nobody routes a claim to themselves.
func (h *Handler) ListManagers(w http.ResponseWriter, r *http.Request) {
	u, ok := h.FromCtx(r)
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	managers, err := h.Service.ManagersExcluding(u.UID)
	if err != nil {
		h.Logger.Error("ListManagers: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, managers)
}

// ListFinanceAdmins returns the pick list for the finance admin field on
// a new claim.
func (h *Handler) ListFinanceAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Service.FindUsersByRole(RoleFinanceAdmin)
	if err != nil {
		h.Logger.Error("ListFinanceAdmins: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, admins)
}
