package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	ProductStatusActive = ""
	ProductStatusLocked = "locked"
)

// Header rows written to empty tables. Order rows use the current layout
// with the invoice id first.
var (
	OrderHeader   = []string{"Mã phiếu", "Ngày", "Chi nhánh", "Tên", "ĐVT", "SL", "Giá", "Thành tiền", "Ghi chú"}
	SummaryHeader = []string{"Mã phiếu", "Chi nhánh", "Ngày", "Tổng tiền"}
	ProductHeader = []string{"Tên", "Đơn vị", "Giá", "Trạng thái"}
)

// Numeric is a number kept exactly as it was typed. It accepts a JSON string
// or a JSON number; a number literal keeps its trailing zeros ("19.50").
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = Numeric(num.String())
	return nil
}

func (n Numeric) String() string {
	return string(n)
}

type OrderLine struct {
	InvoiceID string  `json:"invoice_id"`
	Date      string  `json:"date"`
	Branch    string  `json:"branch"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  Numeric `json:"quantity"`
	Price     Numeric `json:"price"`
	Total     string  `json:"total"`
	Note      string  `json:"note"`
}

type InvoiceSummary struct {
	InvoiceID string `json:"invoice_id"`
	Branch    string `json:"branch"`
	Date      string `json:"date"`
	Total     string `json:"total"`
}

type Product struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Unit   string  `json:"unit"`
	Price  Numeric `json:"price"`
	Status string  `json:"status"`
}

type LineItemRequest struct {
	Name     string  `json:"name" validate:"required"`
	Unit     string  `json:"unit"`
	Quantity Numeric `json:"quantity"`
	Price    Numeric `json:"price"`
	Note     string  `json:"note"`
	// Total is accepted for compatibility with clients that send their own
	// line totals; it is always recomputed.
	Total Numeric `json:"total,omitempty"`
}

type InvoiceCreateRequest struct {
	Date   string            `json:"date" validate:"required,datetime=2006-01-02"`
	Branch string            `json:"branch"`
	Note   string            `json:"note"`
	Items  []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type InvoiceUpdateRequest struct {
	Date   string            `json:"date" validate:"required,datetime=2006-01-02"`
	Branch string            `json:"branch"`
	Note   string            `json:"note"`
	Items  []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type InvoiceCreateResponse struct {
	Success   bool        `json:"success"`
	InvoiceID string      `json:"invoice_id"`
	Total     string      `json:"total"`
	Lines     []OrderLine `json:"lines"`
	// SummaryWritten is false when the summary row could not be appended;
	// the order lines are kept regardless.
	SummaryWritten bool `json:"summary_written"`
}

type InvoiceDetail struct {
	InvoiceID    string          `json:"invoice_id"`
	Lines        []OrderLine     `json:"lines"`
	Summary      *InvoiceSummary `json:"summary,omitempty"`
	DisplayTotal string          `json:"display_total"`
}

type InvoiceSummaryView struct {
	InvoiceID    string `json:"invoice_id"`
	Branch       string `json:"branch"`
	Date         string `json:"date"`
	Total        string `json:"total"`
	DisplayTotal string `json:"display_total"`
}

type OrderListResponse struct {
	Orders            []OrderLine `json:"orders"`
	GrandTotal        string      `json:"grand_total"`
	GrandTotalDisplay string      `json:"grand_total_display"`
}

type NextInvoiceIDResponse struct {
	InvoiceID *string `json:"invoice_id"`
}

type ProductCreateRequest struct {
	Name   string  `json:"name" validate:"required"`
	Unit   string  `json:"unit"`
	Price  Numeric `json:"price"`
	Status string  `json:"status" validate:"omitempty,oneof=locked"`
}

type ProductUpdateRequest struct {
	ID    int     `json:"id" validate:"required,min=1"`
	Name  string  `json:"name" validate:"required"`
	Unit  string  `json:"unit"`
	Price Numeric `json:"price"`
}

type ProductStatusRequest struct {
	ID     int    `json:"id" validate:"required,min=1"`
	Status string `json:"status" validate:"omitempty,oneof=locked"`
}

type ProductDeleteRequest struct {
	ID int `json:"id" validate:"required,min=1"`
}

type Divergence struct {
	InvoiceID string `json:"invoice_id"`
	Kind      string `json:"kind"`
	Expected  string `json:"expected,omitempty"`
	Actual    string `json:"actual,omitempty"`
}

type AuditReport struct {
	CheckedInvoices int          `json:"checked_invoices"`
	Divergences     []Divergence `json:"divergences"`
	RanAt           time.Time    `json:"ran_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username string
	Password string
	Role     string
	Active   bool
}
