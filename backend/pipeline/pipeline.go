// Package pipeline turns a decoded contracts spreadsheet into contracts with a
// resolved end date, days to expire and a vigency status.
//
// Every function here is row local and free of shared state. The reference
// date is always passed in by the caller so that one run judges all rows
// against the same day.
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/shopspring/decimal"
)

// ErrMissingColumn is matched by every *MissingColumnError.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError lists the configured headers the sheet does not have.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column(s): %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Columns names the source header of every field the pipeline reads.
type Columns struct {
	SignatureDate   string `yaml:"signature_date"`
	LastUpdateDate  string `yaml:"last_update_date"`
	VigencyStart    string `yaml:"vigency_start"`
	PublicationDate string `yaml:"publication_date"`
	UpdatedEndDate  string `yaml:"updated_end_date"`
	OriginalEndDate string `yaml:"original_end_date"`
	Supplier        string `yaml:"supplier"`
	Value           string `yaml:"value"`
	Year            string `yaml:"year"`
	Object          string `yaml:"object"`
}

// DefaultColumns are the headers of the public administrative contracts export.
func DefaultColumns() Columns {
	return Columns{
		SignatureDate:   "data_de_assinatura",
		LastUpdateDate:  "data_de_atualizacao",
		VigencyStart:    "inicio_vigencia",
		PublicationDate: "data_de_publicacao_do_extrato_no_dou",
		UpdatedEndDate:  "fim_vigencia_atualizado",
		OriginalEndDate: "fim_vigencia_original",
		Supplier:        "contratado",
		Value:           "valor_global_acumulado",
		Year:            "ano",
		Object:          "objeto",
	}
}

// WithDefaults fills every empty header name from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.SignatureDate, d.SignatureDate)
	fill(&c.LastUpdateDate, d.LastUpdateDate)
	fill(&c.VigencyStart, d.VigencyStart)
	fill(&c.PublicationDate, d.PublicationDate)
	fill(&c.UpdatedEndDate, d.UpdatedEndDate)
	fill(&c.OriginalEndDate, d.OriginalEndDate)
	fill(&c.Supplier, d.Supplier)
	fill(&c.Value, d.Value)
	fill(&c.Year, d.Year)
	fill(&c.Object, d.Object)
	return c
}

// Result is the output of a pipeline run.
type Result struct {
	Contracts []model.Contract
	Report    model.QualityReport
}

type dateField struct {
	header string
	set    func(c *model.Contract, d model.Date)
}

// Normalize decodes every row of sheet into a contract. Derived fields are
// left empty. When configured headers are absent the affected fields stay
// missing for all rows and a *MissingColumnError is returned along with the
// full result.
func Normalize(sheet model.Sheet, cols Columns) (Result, error) {
	cols = cols.WithDefaults()
	index := headerIndex(sheet.Header)

	lookup := func(header string, missing *[]string) int {
		i, ok := index[normalizeHeader(header)]
		if !ok {
			*missing = append(*missing, header)
			return -1
		}
		return i
	}

	var missing []string
	dates := []dateField{
		{cols.SignatureDate, func(c *model.Contract, d model.Date) { c.SignatureDate = d }},
		{cols.LastUpdateDate, func(c *model.Contract, d model.Date) { c.LastUpdateDate = d }},
		{cols.VigencyStart, func(c *model.Contract, d model.Date) { c.VigencyStart = d }},
		{cols.PublicationDate, func(c *model.Contract, d model.Date) { c.PublicationDate = d }},
		{cols.UpdatedEndDate, func(c *model.Contract, d model.Date) { c.UpdatedEndDate = d }},
		{cols.OriginalEndDate, func(c *model.Contract, d model.Date) { c.OriginalEndDate = d }},
	}
	dateIdx := make([]int, len(dates))
	for i, f := range dates {
		dateIdx[i] = lookup(f.header, &missing)
	}
	supplierIdx := lookup(cols.Supplier, &missing)
	valueIdx := lookup(cols.Value, &missing)
	yearIdx := lookup(cols.Year, &missing)
	objectIdx := lookup(cols.Object, &missing)

	res := Result{
		Contracts: make([]model.Contract, len(sheet.Rows)),
		Report: model.QualityReport{
			Rows:           len(sheet.Rows),
			InvalidDates:   make(map[string]int),
			MissingColumns: missing,
		},
	}

	for r := range sheet.Rows {
		c := &res.Contracts[r]
		// header is row 1 of the source
		c.Row = r + 2

		for i, f := range dates {
			if dateIdx[i] < 0 {
				continue
			}
			raw := sheet.Cell(r, dateIdx[i])
			d, ok := ParseDate(raw)
			if !ok && strings.TrimSpace(raw) != "" {
				res.Report.InvalidDates[f.header]++
			}
			f.set(c, d)
		}

		if supplierIdx >= 0 {
			c.Supplier = strings.TrimSpace(sheet.Cell(r, supplierIdx))
			name, ok := ExtractSupplierName(c.Supplier)
			if !ok {
				res.Report.MissingSupplier++
			}
			c.SupplierName = name
		}
		if valueIdx >= 0 {
			raw := sheet.Cell(r, valueIdx)
			c.AccumulatedValue = ParseValue(raw)
			if !c.AccumulatedValue.Valid && strings.TrimSpace(raw) != "" {
				res.Report.InvalidValues++
			}
		}
		if yearIdx >= 0 {
			c.Year = ParseYear(sheet.Cell(r, yearIdx))
		}
		if objectIdx >= 0 {
			c.Object = strings.TrimSpace(sheet.Cell(r, objectIdx))
		}
	}

	if len(missing) > 0 {
		return res, &MissingColumnError{Columns: missing}
	}
	return res, nil
}

// Derive returns a copy of contracts with the effective end date, days to
// expire and status computed against today. The input slice is not modified.
func Derive(contracts []model.Contract, today model.Date) []model.Contract {
	out := make([]model.Contract, len(contracts))
	for i, c := range contracts {
		c.EffectiveEndDate = EffectiveEndDate(c.UpdatedEndDate, c.OriginalEndDate)
		days, ok := DaysToExpire(c.EffectiveEndDate, today)
		c.DaysToExpire = nil
		if ok {
			c.DaysToExpire = &days
		}
		c.Status = Classify(days, ok)
		out[i] = c
	}
	return out
}

// Run normalizes sheet and derives the vigency columns against today.
func Run(sheet model.Sheet, cols Columns, today model.Date) (Result, error) {
	res, err := Normalize(sheet, cols)
	res.Contracts = Derive(res.Contracts, today)
	return res, err
}

// ParseValue reads an amount written as a plain decimal ("1234567.8"), in
// Brazilian notation ("R$ 1.234.567,80") or with comma thousands
// ("1,234,567.80"). Whichever of "," and "." comes last is the decimal
// separator; a lone "," is always decimal.
func ParseValue(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return decimal.NullDecimal{}
	}
	if comma := strings.LastIndex(s, ","); comma >= 0 {
		if comma > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseYear reads a signing year such as "2019" or "2019.0". It returns 0 when
// the cell holds no usable year.
func ParseYear(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if y, err := strconv.Atoi(s); err == nil {
		return validYear(y)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0
	}
	return validYear(int(f))
}

func validYear(y int) int {
	if y < minYear || y > maxYear {
		return 0
	}
	return y
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	return index
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}
