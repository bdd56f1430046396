package claim

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/claim-workflow/internal/auth"
	"github.com/frahmantamala/claim-workflow/internal/transport"
	"github.com/frahmantamala/claim-workflow/pkg/logger"
)

type ServiceAPI interface {
	CreateClaim(submitterUID string, dto CreateClaimDTO) (*Claim, error)
	GetClaim(uid string) (*Claim, error)
	ClaimsForSubmitter(submitterUID string) ([]*Claim, error)
	UpdateClaim(uid string, dto UpdateClaimDTO) (*Claim, error)
	AddItem(claimUID string, dto LineItemDTO) (*LineItem, error)
	UpdateItem(claimUID, itemUID string, dto LineItemDTO) (*LineItem, error)
	DeleteItem(claimUID, itemUID string) error
	AttachItemReceipt(claimUID, itemUID string, upload Upload) error
	ExportPDF(claimUID string, upload Upload) error
	UploadSignedPDF(ctx context.Context, claimUID string, upload Upload) (*Claim, error)
	RejectClaim(ctx context.Context, claimUID string, dto RejectClaimDTO) (*Claim, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

const maxMultipartMemory = 32 << 20

// readUpload decodes the "file" part of a multipart request.
func (h *Handler) readUpload(r *http.Request) (Upload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return Upload{}, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return Upload{}, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, err
	}

	return Upload{
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.Logger.Error("CreateClaim: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateClaimDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateClaim: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.CreateClaim(u.UID, dto)
	if err != nil {
		h.Logger.Error("CreateClaim: service error", "error", err, "submitter_uid", u.UID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetClaim(chi.URLParam(r, "uid"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) ListOwnClaims(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	claims, err := h.Service.ClaimsForSubmitter(u.UID)
	if err != nil {
		h.Logger.Error("ListOwnClaims: service error", "error", err, "submitter_uid", u.UID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, claims)
}

func (h *Handler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	var dto UpdateClaimDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.UpdateClaim(chi.URLParam(r, "uid"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var dto LineItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.AddItem(chi.URLParam(r, "uid"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var dto LineItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.UpdateItem(chi.URLParam(r, "uid"), chi.URLParam(r, "itemUID"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteItem(chi.URLParam(r, "uid"), chi.URLParam(r, "itemUID")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(r)
	if err != nil {
		h.Logger.Error("AttachReceipt: invalid multipart request", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	if err := h.Service.AttachItemReceipt(chi.URLParam(r, "uid"), chi.URLParam(r, "itemUID"), upload); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(r)
	if err != nil {
		h.Logger.Error("ExportPDF: invalid multipart request", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	if err := h.Service.ExportPDF(chi.URLParam(r, "uid"), upload); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadSignedPDF(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readUpload(r)
	if err != nil {
		h.Logger.Error("UploadSignedPDF: invalid multipart request", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	c, err := h.Service.UploadSignedPDF(r.Context(), chi.URLParam(r, "uid"), upload)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("UploadSignedPDF: claim advanced", "claim_uid", c.UID, "state", c.State)
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) RejectClaim(w http.ResponseWriter, r *http.Request) {
	var dto RejectClaimDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.RejectClaim(r.Context(), chi.URLParam(r, "uid"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}
