// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clientes-fidelizacion/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUnavailable возвращается, если хранилище недоступно (ошибка соединения).
var ErrUnavailable = errors.New("storage unavailable")

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// classify оборачивает ошибки соединения в ErrUnavailable, остальные ошибки
// только дополняет описанием операции.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// ListDocumentTypes возвращает активные типы документов, упорядоченные по названию.
func (r *PostgresRepository) ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, codigo, nombre, activo
		 FROM tipo_documento
		 WHERE activo = TRUE
		 ORDER BY nombre, id`,
	)
	if err != nil {
		return nil, classify("select document types", err)
	}
	defer rows.Close()

	var res []model.DocumentType
	for rows.Next() {
		var dt model.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Code, &dt.Name, &dt.Active); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		res = append(res, dt)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("rows error", err)
	}

	return res, nil
}

// customersQuery собирает запрос активных клиентов с необязательными фильтрами
// по документу. EXISTS не размножает строки клиента при нескольких совпадениях.
func customersQuery(filter model.CustomerFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`SELECT c.id, c.nombre, c.apellido, c.correo, c.activo, c.fecha_registro
		 FROM cliente c
		 WHERE c.activo = TRUE`)

	if filter.DocumentTypeID != nil || filter.DocumentNumber != "" {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM documento d WHERE d.cliente_id = c.id`)
		if filter.DocumentTypeID != nil {
			args = append(args, *filter.DocumentTypeID)
			fmt.Fprintf(&sb, ` AND d.tipo_documento_id = $%d`, len(args))
		}
		if filter.DocumentNumber != "" {
			args = append(args, filter.DocumentNumber)
			fmt.Fprintf(&sb, ` AND lower(d.numero_documento) = lower($%d)`, len(args))
		}
		sb.WriteString(`)`)
	}

	sb.WriteString(` ORDER BY c.fecha_registro DESC, c.id DESC`)

	return sb.String(), args
}

// ListActiveCustomers возвращает активных клиентов с документами, телефонами и
// оплаченными покупками начиная с paidSince. Связи загружаются одним запросом
// на сущность для всей выборки.
func (r *PostgresRepository) ListActiveCustomers(ctx context.Context, filter model.CustomerFilter, paidSince time.Time) ([]model.Customer, error) {
	query, args := customersQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("select customers", err)
	}
	defer rows.Close()

	var (
		customers []model.Customer
		ids       []int64
	)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Active, &c.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
		ids = append(ids, c.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("rows error", err)
	}

	if len(customers) == 0 {
		return customers, nil
	}

	docs, err := r.documentsByCustomer(ctx, ids)
	if err != nil {
		return nil, err
	}

	phones, err := r.phonesByCustomer(ctx, ids)
	if err != nil {
		return nil, err
	}

	purchases, err := r.paidPurchasesByCustomer(ctx, ids, paidSince)
	if err != nil {
		return nil, err
	}

	for i := range customers {
		id := customers[i].ID
		customers[i].Documents = docs[id]
		customers[i].Phones = phones[id]
		customers[i].Purchases = purchases[id]
	}

	return customers, nil
}

func (r *PostgresRepository) documentsByCustomer(ctx context.Context, ids []int64) (map[int64][]model.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT d.cliente_id, d.id, d.tipo_documento_id, t.nombre, d.numero_documento, d.principal
		 FROM documento d
		 JOIN tipo_documento t ON t.id = d.tipo_documento_id
		 WHERE d.cliente_id = ANY($1)
		 ORDER BY d.cliente_id, d.id`,
		ids,
	)
	if err != nil {
		return nil, classify("select documents", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.Document)
	for rows.Next() {
		var (
			customerID int64
			d          model.Document
		)
		if err := rows.Scan(&customerID, &d.ID, &d.TypeID, &d.TypeName, &d.Number, &d.Principal); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		res[customerID] = append(res[customerID], d)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("rows error", err)
	}

	return res, nil
}

func (r *PostgresRepository) phonesByCustomer(ctx context.Context, ids []int64) (map[int64][]model.Phone, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT cliente_id, id, numero, COALESCE(extension, ''), principal
		 FROM telefono
		 WHERE cliente_id = ANY($1)
		 ORDER BY cliente_id, id`,
		ids,
	)
	if err != nil {
		return nil, classify("select phones", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.Phone)
	for rows.Next() {
		var (
			customerID int64
			p          model.Phone
		)
		if err := rows.Scan(&customerID, &p.ID, &p.Number, &p.Extension, &p.Principal); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		res[customerID] = append(res[customerID], p)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("rows error", err)
	}

	return res, nil
}

func (r *PostgresRepository) paidPurchasesByCustomer(ctx context.Context, ids []int64, since time.Time) (map[int64][]model.Purchase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, cliente_id, fecha_compra, estado,
		        subtotal::text, impuestos::text, descuento::text, total::text
		 FROM compra
		 WHERE cliente_id = ANY($1) AND estado = $2 AND fecha_compra >= $3
		 ORDER BY cliente_id, fecha_compra`,
		ids, string(model.PurchaseStatusPaid), since,
	)
	if err != nil {
		return nil, classify("select purchases", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.Purchase)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		res[p.CustomerID] = append(res[p.CustomerID], p)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("rows error", err)
	}

	return res, nil
}

func scanPurchase(row pgx.Row) (model.Purchase, error) {
	var (
		p      model.Purchase
		status string

		subtotal, taxes, discount, total string
	)
	if err := row.Scan(&p.ID, &p.CustomerID, &p.PurchasedAt, &status, &subtotal, &taxes, &discount, &total); err != nil {
		return p, fmt.Errorf("scan purchase: %w", err)
	}
	p.Status = model.PurchaseStatus(status)

	amounts := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.Subtotal, subtotal},
		{&p.Taxes, taxes},
		{&p.Discount, discount},
		{&p.Total, total},
	}
	for _, a := range amounts {
		v, err := decimal.NewFromString(a.src)
		if err != nil {
			return p, fmt.Errorf("parse amount %q: %w", a.src, err)
		}
		*a.dst = v
	}

	return p, nil
}
