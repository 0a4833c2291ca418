// Package handler содержит HTTP-обработчики API сервиса клиентов и фиделизации.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/clientes-fidelizacion/internal/model"
	"github.com/mmeshcher/clientes-fidelizacion/internal/report"
	"github.com/mmeshcher/clientes-fidelizacion/internal/repository"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	ListCustomers(ctx context.Context, filter model.CustomerFilter) ([]report.Row, error)
	LoyaltyReport(ctx context.Context, filter model.CustomerFilter, format report.Format) (*report.File, error)
	ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

var errBadFilter = errors.New("bad filter")

// parseFilter читает фильтр клиентов из query-параметров. Общий для списка и выгрузки.
func parseFilter(r *http.Request) (model.CustomerFilter, error) {
	q := r.URL.Query()

	var filter model.CustomerFilter
	if v := strings.TrimSpace(q.Get("tipo_documento")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errBadFilter
		}
		filter.DocumentTypeID = &id
	}
	filter.DocumentNumber = strings.TrimSpace(q.Get("numero_documento"))

	return filter, nil
}

func (h *Handler) storageError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.logger.Error(msg, append(fields, zap.Error(err))...)

	if errors.Is(err, repository.ErrUnavailable) {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// ListCustomers возвращает активных клиентов с основным документом и телефоном.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rows, err := h.service.ListCustomers(r.Context(), filter)
	if err != nil {
		h.storageError(w, "list customers error", err)
		return
	}

	if rows == nil {
		rows = []report.Row{}
	}
	writeJSON(w, rows)
}

// Download отдаёт отчёт фиделизации файлом в формате из параметра formato.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("formato")
	format := report.ParseFormat(token)

	file, err := h.service.LoyaltyReport(r.Context(), filter, format)
	if err != nil {
		h.storageError(w, "loyalty report error", err, zap.String("formato", token))
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", file.ContentDisposition())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		h.logger.Warn("write report error", zap.Error(err), zap.String("file", file.Name))
	}
}

type documentTypeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// ListDocumentTypes возвращает активные типы документов для фильтров.
func (h *Handler) ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListDocumentTypes(r.Context())
	if err != nil {
		h.storageError(w, "list document types error", err)
		return
	}

	resp := make([]documentTypeResponse, 0, len(types))
	for _, dt := range types {
		resp = append(resp, documentTypeResponse{ID: dt.ID, Name: dt.Name})
	}
	writeJSON(w, resp)
}

// Ping сообщает о доступности хранилища.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("ping error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
