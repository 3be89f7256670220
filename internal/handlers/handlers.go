package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Brownie44l1/currency-api/internal/model"
	"github.com/Brownie44l1/currency-api/internal/recognizer"
	"github.com/Brownie44l1/currency-api/internal/vision"
)

type Handler struct {
	recognizer *recognizer.Recognizer
	maxUpload  int64
	maxPixels  int
	logger     *slog.Logger
}

// Limits bound what a single upload may cost: MaxUploadMB caps the request
// body, MaxPixels the decoded frame.
type Limits struct {
	MaxUploadMB int
	MaxPixels   int
}

func NewHandler(r *recognizer.Recognizer, limits Limits, logger *slog.Logger) *Handler {
	if limits.MaxUploadMB <= 0 {
		limits.MaxUploadMB = 10
	}
	if limits.MaxPixels <= 0 {
		limits.MaxPixels = vision.DefaultMaxPixels
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		recognizer: r,
		maxUpload:  int64(limits.MaxUploadMB) << 20,
		maxPixels:  limits.MaxPixels,
		logger:     logger,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("handlers.encode_failed", "status", status, "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps recognizer error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case model.IsKind(err, model.KindBusy):
		return http.StatusConflict
	case model.IsKind(err, model.KindInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"busy":   h.recognizer.Busy(),
	})
}

func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"classes":   h.recognizer.Labels(),
		"threshold": h.recognizer.Threshold(),
	})
}

// Predict accepts an already normalized tensor as JSON.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var req model.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if want := h.recognizer.InputSize(); len(req.Image) != want {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Expected %d values, got %d", want, len(req.Image)), nil)
		return
	}

	result, err := h.recognizer.Predict(r.Context(), req.Image)
	if err != nil {
		h.logger.Error("handlers.predict_failed", "err", err, "request_id", RequestID(r.Context()))
		writeError(w, statusFor(err), "Prediction failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PredictFromImage runs an uploaded photo through the full capture pipeline.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form", err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided. Use 'image' as the form field name", nil)
		return
	}
	defer file.Close()

	rotation := 0
	if v := r.FormValue("rotation"); v != "" {
		rotation, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "rotation must be an integer number of degrees", err)
			return
		}
	}

	// Skip decoding while a capture is running; Recognize rechecks the flag.
	if h.recognizer.Busy() {
		writeError(w, http.StatusConflict, "A capture is already being processed", nil)
		return
	}

	img, format, err := vision.Decode(file, h.maxPixels)
	if errors.Is(err, vision.ErrTooLarge) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Image exceeds %d pixels", h.maxPixels), err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image format. Supported: JPEG, PNG, GIF, WebP, BMP", err)
		return
	}

	h.logger.Debug("handlers.image_received",
		"request_id", RequestID(r.Context()),
		"filename", header.Filename,
		"bytes", header.Size,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
	)

	result, err := h.recognizer.Recognize(r.Context(), img, rotation)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, model.ErrBusy) {
			writeError(w, status, "A capture is already being processed", nil)
			return
		}
		h.logger.Error("handlers.recognize_failed", "err", err, "request_id", RequestID(r.Context()))
		writeError(w, status, "Recognition failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
