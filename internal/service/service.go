// Package service реализует бизнес-логику сервиса клиентов и фиделизации.
package service

import (
	"context"
	"time"

	"github.com/mmeshcher/clientes-fidelizacion/internal/loyalty"
	"github.com/mmeshcher/clientes-fidelizacion/internal/model"
	"github.com/mmeshcher/clientes-fidelizacion/internal/report"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	ListActiveCustomers(ctx context.Context, filter model.CustomerFilter, paidSince time.Time) ([]model.Customer, error)
	ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error)
}

// Service содержит бизнес-логику сервиса клиентов и фиделизации.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ListCustomers возвращает строки простого списка активных клиентов.
func (s *Service) ListCustomers(ctx context.Context, filter model.CustomerFilter) ([]report.Row, error) {
	// Покупки простому списку не нужны, поэтому нижней границей служит текущий момент.
	customers, err := s.repo.ListActiveCustomers(ctx, filter, s.now())
	if err != nil {
		return nil, err
	}

	rows := make([]report.Row, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, report.FlattenCustomer(c))
	}
	return rows, nil
}

// LoyaltyReport вычисляет фиделизацию для отфильтрованных клиентов и кодирует
// отчёт в запрошенный формат. Окно отсчитывается от момента вызова.
func (s *Service) LoyaltyReport(ctx context.Context, filter model.CustomerFilter, format report.Format) (*report.File, error) {
	now := s.now()

	customers, err := s.repo.ListActiveCustomers(ctx, filter, loyalty.WindowStart(now))
	if err != nil {
		return nil, err
	}

	results := loyalty.Annotate(customers, now)

	table := report.Table{
		Columns: report.Columns(report.VariantLoyalty),
		Rows:    make([]report.Row, 0, len(results)),
	}
	for _, r := range results {
		table.Rows = append(table.Rows, report.FlattenLoyalty(r))
	}

	return report.Encode(format, table, now)
}

// ListDocumentTypes возвращает активные типы документов.
func (s *Service) ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error) {
	return s.repo.ListDocumentTypes(ctx)
}
