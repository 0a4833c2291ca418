package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mmeshcher/clientes-fidelizacion/internal/model"
	"github.com/mmeshcher/clientes-fidelizacion/internal/report"
	"github.com/mmeshcher/clientes-fidelizacion/internal/repository"
	"github.com/mmeshcher/clientes-fidelizacion/internal/service"
)

type stubService struct {
	rows    []report.Row
	rowsErr error

	file    *report.File
	fileErr error

	docTypes    []model.DocumentType
	docTypesErr error

	pingErr error

	gotFilter model.CustomerFilter
	gotFormat report.Format
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) ListCustomers(ctx context.Context, filter model.CustomerFilter) ([]report.Row, error) {
	s.gotFilter = filter
	return s.rows, s.rowsErr
}

func (s *stubService) LoyaltyReport(ctx context.Context, filter model.CustomerFilter, format report.Format) (*report.File, error) {
	s.gotFilter = filter
	s.gotFormat = format
	return s.file, s.fileErr
}

func (s *stubService) ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error) {
	return s.docTypes, s.docTypesErr
}

// memoryRepo отдаёт заранее подготовленных клиентов реальному сервису.
type memoryRepo struct {
	customers []model.Customer
}

func (m *memoryRepo) Close() error { return nil }
func (m *memoryRepo) Ping(ctx context.Context) error { return nil }

func (m *memoryRepo) ListActiveCustomers(ctx context.Context, filter model.CustomerFilter, paidSince time.Time) ([]model.Customer, error) {
	return m.customers, nil
}

func (m *memoryRepo) ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger)
}

func serve(h *Handler, target string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func TestDownload_XLSXWithTwoQualifyingCustomers(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	paid := func(total string) []model.Purchase {
		return []model.Purchase{{
			Status:      model.PurchaseStatusPaid,
			Total:       decimal.RequireFromString(total),
			PurchasedAt: now.AddDate(0, 0, -3),
		}}
	}

	repo := &memoryRepo{customers: []model.Customer{
		{ID: 1, FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", Purchases: paid("6000000")},
		{ID: 2, FirstName: "Luis", LastName: "Gomez", Email: "luis@example.com", Purchases: paid("7500000.50")},
	}}
	svc := service.NewService(repo, service.WithClock(func() time.Time { return now }))
	h := newTestHandler(t, svc)

	res := serve(h, "/download/?formato=xlsx")
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", res.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=reporte_fidelizacion_clientes_20250315.xlsx", res.Header.Get("Content-Disposition"))

	f, err := excelize.OpenReader(res.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "monto_ultimo_mes", rows[0][6])
	assert.Equal(t, []string{"6000000.00", "true"}, rows[1][6:])
	assert.Equal(t, []string{"7500000.50", "true"}, rows[2][6:])
}

func TestDownload_FormatDispatch(t *testing.T) {
	tests := []struct {
		query string
		want  report.Format
	}{
		{"/download/", report.FormatCSV},
		{"/download/?formato=csv", report.FormatCSV},
		{"/download/?formato=txt", report.FormatTXT},
		{"/download/?formato=xlsx", report.FormatXLSX},
		{"/download/?formato=docx", report.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			file, err := report.Encode(tt.want, report.Table{Columns: report.Columns(report.VariantLoyalty)}, time.Now())
			require.NoError(t, err)

			svc := &stubService{file: file}
			res := serve(newTestHandler(t, svc), tt.query)
			defer res.Body.Close()

			require.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tt.want, svc.gotFormat)
			assert.True(t, strings.HasPrefix(res.Header.Get("Content-Disposition"), "attachment; filename="+report.FilePrefix))
		})
	}
}

func TestDownload_PassesFilter(t *testing.T) {
	file, err := report.Encode(report.FormatCSV, report.Table{Columns: report.Columns(report.VariantLoyalty)}, time.Now())
	require.NoError(t, err)

	svc := &stubService{file: file}
	res := serve(newTestHandler(t, svc), "/download/?tipo_documento=2&numero_documento=AbC123")
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotNil(t, svc.gotFilter.DocumentTypeID)
	assert.Equal(t, int64(2), *svc.gotFilter.DocumentTypeID)
	assert.Equal(t, "AbC123", svc.gotFilter.DocumentNumber)
}

func TestStorageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic failure", errors.New("boom"), http.StatusInternalServerError},
		{"connection failure", fmt.Errorf("select customers: %w", repository.ErrUnavailable), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{rowsErr: tt.err, fileErr: tt.err, docTypesErr: tt.err}
			h := newTestHandler(t, svc)

			for _, target := range []string{"/clientes/", "/download/?formato=txt", "/tipos-documento/"} {
				res := serve(h, target)
				res.Body.Close()
				assert.Equal(t, tt.want, res.StatusCode, target)
			}
		})
	}
}

func TestListCustomers_JSON(t *testing.T) {
	doc, number, phone := "Pasaporte", "AB1", "3001234567"
	svc := &stubService{rows: []report.Row{
		{DocumentType: &doc, DocumentNumber: &number, FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.com", Phone: &phone},
		{FirstName: "Luis", LastName: "Gomez", Email: "luis@example.com"},
	}}

	res := serve(newTestHandler(t, svc), "/clientes/")
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "Pasaporte", got[0]["tipo_documento"])
	assert.Equal(t, "3001234567", got[0]["telefono"])
	assert.Nil(t, got[1]["tipo_documento"])
	assert.Contains(t, got[1], "telefono")
	assert.NotContains(t, got[0], "monto_ultimo_mes")
}

func TestListCustomers_EmptyIsArray(t *testing.T) {
	res := serve(newTestHandler(t, &stubService{}), "/clientes/")
	defer res.Body.Close()

	var buf bytes.Buffer
	_, err := buf.ReadFrom(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", buf.String())
}

func TestListCustomers_BadDocumentType(t *testing.T) {
	res := serve(newTestHandler(t, &stubService{}), "/clientes/?tipo_documento=CC")
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestListDocumentTypes(t *testing.T) {
	svc := &stubService{docTypes: []model.DocumentType{
		{ID: 2, Code: "CC", Name: "Cédula de Ciudadanía"},
		{ID: 1, Code: "NIT", Name: "NIT"},
	}}

	res := serve(newTestHandler(t, svc), "/tipos-documento/")
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var got []documentTypeResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, []documentTypeResponse{
		{ID: 2, Name: "Cédula de Ciudadanía"},
		{ID: 1, Name: "NIT"},
	}, got)
}

func TestPing(t *testing.T) {
	res := serve(newTestHandler(t, &stubService{}), "/ping")
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = serve(newTestHandler(t, &stubService{pingErr: repository.ErrUnavailable}), "/ping")
	res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	res := serve(newTestHandler(t, &stubService{}), "/nope")
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
