// Package model содержит доменные сущности сервиса клиентов и фиделизации.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType описывает элемент справочника типов документов.
type DocumentType struct {
	ID     int64
	Code   string
	Name   string
	Active bool
}

// Document описывает документ, удостоверяющий личность клиента.
type Document struct {
	ID        int64
	TypeID    int64
	TypeName  string
	Number    string
	Principal bool
}

// Phone описывает телефон клиента.
type Phone struct {
	ID        int64
	Number    string
	Extension string
	Principal bool
}

// PurchaseStatus описывает статус жизненного цикла покупки.
type PurchaseStatus string

const (
	PurchaseStatusPending    PurchaseStatus = "PEN"
	PurchaseStatusPaid       PurchaseStatus = "PAG"
	PurchaseStatusCancelled  PurchaseStatus = "CAN"
	PurchaseStatusReturned   PurchaseStatus = "DEV"
	PurchaseStatusInProgress PurchaseStatus = "PRO"
)

// Purchase описывает заголовок покупки клиента.
type Purchase struct {
	ID          int64
	CustomerID  int64
	PurchasedAt time.Time
	Status      PurchaseStatus
	Subtotal    decimal.Decimal
	Taxes       decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Customer описывает клиента вместе с предзагруженными связями.
type Customer struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	Active       bool
	RegisteredAt time.Time

	Documents []Document
	Phones    []Phone
	Purchases []Purchase
}

// CustomerFilter сужает выборку активных клиентов по документу.
type CustomerFilter struct {
	// DocumentTypeID отбирает клиентов с документом указанного типа.
	DocumentTypeID *int64
	// DocumentNumber сравнивается с номером документа без учёта регистра.
	DocumentNumber string
}
