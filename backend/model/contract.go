package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the vigency bucket a contract falls into.
type Status string

// Vigency status constants
const (
	StatusInvalidDate  Status = "invalid_date"
	StatusExpired      Status = "expired"
	StatusExpiringSoon Status = "expiring_soon"
	StatusInProgress   Status = "in_progress"
)

// Statuses returns every status in canonical order.
func Statuses() []Status {
	return []Status{StatusInvalidDate, StatusExpired, StatusExpiringSoon, StatusInProgress}
}

// ParseStatus accepts the status identifier, e.g. "expiring_soon".
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Label returns the display label used by the dashboard.
func (s Status) Label() string {
	switch s {
	case StatusInvalidDate:
		return "Data inválida"
	case StatusExpired:
		return "Vencido"
	case StatusExpiringSoon:
		return "A vencer (30 dias)"
	case StatusInProgress:
		return "Em andamento"
	}
	return string(s)
}

// Rank is the position of s in Statuses(), or len(Statuses()) for unknown values.
func (s Status) Rank() int {
	for i, st := range Statuses() {
		if st == s {
			return i
		}
	}
	return len(Statuses())
}

// Date is a calendar date without time zone. The zero value is a missing date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the given components the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Valid reports whether the date is present.
func (d Date) Valid() bool {
	return d != Date{}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

// Contract is one row of the administrative contracts spreadsheet.
type Contract struct {
	Row              int                 `json:"row"`
	Object           string              `json:"object"`
	Supplier         string              `json:"supplier"`
	SupplierName     string              `json:"supplier_name,omitempty"`
	AccumulatedValue decimal.NullDecimal `json:"accumulated_value"`
	Year             int                 `json:"year,omitempty"`

	SignatureDate   Date `json:"signature_date"`
	LastUpdateDate  Date `json:"last_update_date"`
	VigencyStart    Date `json:"vigency_start"`
	PublicationDate Date `json:"publication_date"`
	UpdatedEndDate  Date `json:"updated_end_date"`
	OriginalEndDate Date `json:"original_end_date"`

	// Derived by the pipeline.
	EffectiveEndDate Date   `json:"effective_end_date"`
	DaysToExpire     *int   `json:"days_to_expire"`
	Status           Status `json:"status,omitempty"`
}

// Sheet is a decoded spreadsheet: a header row followed by data rows of raw cells.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// Cell returns the cell at row/col, or "" when the row is shorter.
func (s Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}
