package settlement

import (
	"context"
	"net/http"

	"github.com/noah-isme/backend-vendas/internal/common"
)

// MethodLister reads the active payment method catalog.
type MethodLister interface {
	List(ctx context.Context) ([]Method, error)
}

// Handler exposes the payment method catalog over HTTP.
type Handler struct {
	methods MethodLister
}

// NewHandler constructs a Handler.
func NewHandler(methods MethodLister) *Handler {
	return &Handler{methods: methods}
}

type methodResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	MaxInstallments int32  `json:"maxInstallments,omitempty"`
}

// Methods handles GET /api/v1/payment-methods.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	if h.methods == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment methods not configured", nil)
		return
	}
	methods, err := h.methods.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list payment methods", nil)
		return
	}
	out := make([]methodResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, methodResponse{
			ID:              m.ID.String(),
			Name:            m.Name,
			Kind:            string(m.Kind),
			MaxInstallments: m.MaxInstallments,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
