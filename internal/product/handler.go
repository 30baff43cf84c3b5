package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"catalog-be/internal/logger"
	"catalog-be/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the product routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/products", h.List).Methods(http.MethodGet)
	r.HandleFunc("/products", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/products/{id}/related", h.Related).Methods(http.MethodGet)
	r.HandleFunc("/categories", h.Categories).Methods(http.MethodGet)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context(), ListOptionsFromValues(r.URL.Query()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch products")
		return
	}
	utils.WriteData(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch product")
		return
	}
	utils.WriteData(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create product")
		return
	}
	utils.WriteData(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update product")
		return
	}
	utils.WriteData(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err, "Failed to delete product")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{
		Success: true,
		Message: "Product deleted successfully",
	})
}

func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	utils.WriteData(w, http.StatusOK, h.svc.Related(r.Context(), mux.Vars(r)["id"], limit))
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch categories")
		return
	}
	utils.WriteData(w, http.StatusOK, categories)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromCtx(r.Context()).Info("invalid request body", zap.Error(err))
		utils.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeServiceError maps service errors onto status codes. fallback is used
// when an unexpected error carries no message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *ValidationError

	switch {
	case errors.As(err, &verr):
		msg := "Invalid product fields"
		if len(verr.Missing) > 0 {
			msg = "Missing required fields"
		}
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{
			Success: false,
			Error:   msg,
			Fields:  verr.Fields(),
		})
	case errors.Is(err, ErrNotFound):
		utils.WriteJSONError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, ErrDuplicateSlug):
		utils.WriteJSONError(w, "A product with this slug already exists", http.StatusConflict)
	default:
		logger.FromCtx(r.Context()).Error(fallback, zap.Error(err))
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		utils.WriteJSONError(w, msg, http.StatusInternalServerError)
	}
}
