// Package report превращает клиентов в плоские строки отчёта и кодирует их
// в один из поддерживаемых форматов файла.
package report

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clientes-fidelizacion/internal/loyalty"
	"github.com/mmeshcher/clientes-fidelizacion/internal/model"
)

// Column задаёт имя колонки отчёта.
type Column string

const (
	ColumnDocumentType   Column = "tipo_documento"
	ColumnDocumentNumber Column = "numero_documento"
	ColumnFirstName      Column = "nombre"
	ColumnLastName       Column = "apellido"
	ColumnEmail          Column = "correo"
	ColumnPhone          Column = "telefono"
	ColumnLastMonthTotal Column = "monto_ultimo_mes"
	ColumnQualifies      Column = "aplica_fidelizacion"
)

var columnOrder = []Column{
	ColumnDocumentType,
	ColumnDocumentNumber,
	ColumnFirstName,
	ColumnLastName,
	ColumnEmail,
	ColumnPhone,
	ColumnLastMonthTotal,
	ColumnQualifies,
}

// Variant определяет набор колонок отчёта.
type Variant int

const (
	// VariantCustomers соответствует простому списку клиентов.
	VariantCustomers Variant = iota
	// VariantLoyalty добавляет к списку клиентов поля фиделизации.
	VariantLoyalty
)

func (v Variant) has(c Column) bool {
	switch c {
	case ColumnLastMonthTotal, ColumnQualifies:
		return v == VariantLoyalty
	default:
		return true
	}
}

// Columns возвращает колонки варианта в фиксированном порядке.
func Columns(v Variant) []Column {
	cols := make([]Column, 0, len(columnOrder))
	for _, c := range columnOrder {
		if v.has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Row описывает плоскую строку отчёта. Поля-указатели отсутствуют, если у клиента
// нет соответствующих данных или вариант отчёта их не содержит.
type Row struct {
	DocumentType   *string          `json:"tipo_documento"`
	DocumentNumber *string          `json:"numero_documento"`
	FirstName      string           `json:"nombre"`
	LastName       string           `json:"apellido"`
	Email          string           `json:"correo"`
	Phone          *string          `json:"telefono"`
	LastMonthTotal *decimal.Decimal `json:"monto_ultimo_mes,omitempty"`
	Qualifies      *bool            `json:"aplica_fidelizacion,omitempty"`
}

// Value возвращает текстовое значение колонки и признак его наличия.
func (r Row) Value(c Column) (string, bool) {
	switch c {
	case ColumnDocumentType:
		return optional(r.DocumentType)
	case ColumnDocumentNumber:
		return optional(r.DocumentNumber)
	case ColumnFirstName:
		return r.FirstName, true
	case ColumnLastName:
		return r.LastName, true
	case ColumnEmail:
		return r.Email, true
	case ColumnPhone:
		return optional(r.Phone)
	case ColumnLastMonthTotal:
		if r.LastMonthTotal == nil {
			return "", false
		}
		return r.LastMonthTotal.StringFixed(2), true
	case ColumnQualifies:
		if r.Qualifies == nil {
			return "", false
		}
		return strconv.FormatBool(*r.Qualifies), true
	}
	return "", false
}

func optional(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// FlattenCustomer строит строку простого списка клиентов.
func FlattenCustomer(c model.Customer) Row {
	row := Row{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
	}

	if doc, ok := PrincipalDocument(c.Documents); ok {
		typeName, number := doc.TypeName, doc.Number
		row.DocumentType = &typeName
		row.DocumentNumber = &number
	}

	if phone, ok := PrincipalPhone(c.Phones); ok {
		number := phone.Number
		row.Phone = &number
	}

	return row
}

// FlattenLoyalty строит строку отчёта фиделизации.
func FlattenLoyalty(r loyalty.Result) Row {
	row := FlattenCustomer(r.Customer)
	total := r.LastMonthTotal
	qualifies := r.Qualifies
	row.LastMonthTotal = &total
	row.Qualifies = &qualifies
	return row
}

// PrincipalDocument выбирает основной документ клиента: отмеченный как
// основной с наименьшим ID, иначе документ с наименьшим ID.
func PrincipalDocument(docs []model.Document) (model.Document, bool) {
	return pickPrincipal(docs,
		func(d model.Document) int64 { return d.ID },
		func(d model.Document) bool { return d.Principal },
	)
}

// PrincipalPhone выбирает основной телефон клиента по тому же правилу, что и
// PrincipalDocument.
func PrincipalPhone(phones []model.Phone) (model.Phone, bool) {
	return pickPrincipal(phones,
		func(p model.Phone) int64 { return p.ID },
		func(p model.Phone) bool { return p.Principal },
	)
}

func pickPrincipal[T any](items []T, id func(T) int64, principal func(T) bool) (T, bool) {
	var (
		best, first       T
		hasBest, hasFirst bool
	)
	for _, it := range items {
		if !hasFirst || id(it) < id(first) {
			first, hasFirst = it, true
		}
		if principal(it) && (!hasBest || id(it) < id(best)) {
			best, hasBest = it, true
		}
	}
	if hasBest {
		return best, true
	}
	return first, hasFirst
}
