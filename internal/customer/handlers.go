package customer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-vendas/internal/common"
	"github.com/noah-isme/backend-vendas/internal/document"
)

var validate = validator.New()

// Handler exposes customer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type validateDocumentRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=cpf cnpj"`
	Document string `json:"document" validate:"required,max=32"`
}

// ValidateDocument handles POST /api/v1/documents/validate.
func (h *Handler) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	var req validateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.BadRequest("invalid JSON body", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, common.BadRequest("kind must be cpf or cnpj and document is required", err))
		return
	}
	check := CheckDocument(document.Kind(req.Kind), req.Document)
	common.JSON(w, http.StatusOK, map[string]any{"data": check})
}

// Rules handles GET /api/v1/customers/{id}/rules.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customer service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, common.BadRequest("invalid customer id", err))
		return
	}
	rules, err := h.service.Rules(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
