package upload

import (
	"errors"
	"io"
	"net/http"

	"catalog-be/internal/logger"
	"catalog-be/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

type Handler struct {
	relay *Relay
}

func NewHandler(relay *Relay) *Handler {
	return &Handler{relay: relay}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Fail fast before reading the body when credentials are missing.
	if err := h.relay.CheckConfig(); err != nil {
		writeUploadError(w, r, err)
		return
	}

	maxBytes := h.relay.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeUploadError(w, r, ErrFileTooLarge)
			return
		}
		writeUploadError(w, r, ErrNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeUploadError(w, r, ErrNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeUploadError(w, r, err)
		return
	}

	res, err := h.relay.Upload(r.Context(), File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeUploadError(w, r, err)
		return
	}

	utils.WriteData(w, http.StatusOK, res)
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoFile):
		utils.WriteJSONError(w, "No file provided", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidFile):
		utils.WriteJSONError(w, "Only image files can be uploaded", http.StatusBadRequest)
	case errors.Is(err, ErrFileTooLarge):
		utils.WriteJSONError(w, "File is too large", http.StatusBadRequest)
	case errors.Is(err, ErrConfigMissing):
		utils.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
	default:
		logger.FromCtx(r.Context()).Error("upload failed", zap.Error(err))
		msg := err.Error()
		if msg == "" {
			msg = "Failed to upload image"
		}
		utils.WriteJSONError(w, msg, http.StatusInternalServerError)
	}
}
