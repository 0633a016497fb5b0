// Package report computes the dashboard views from derived contracts.
package report

import (
	"sort"

	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/shopspring/decimal"
)

// TopN is the length of the supplier rankings.
const TopN = 10

type ExpiringContract struct {
	Row          int    `json:"row"`
	Object       string `json:"object"`
	Value        string `json:"value"`
	DaysToExpire int    `json:"days_to_expire"`
}

type StatusCount struct {
	Status model.Status `json:"status"`
	Label  string       `json:"label"`
	Count  int          `json:"count"`
}

type StatusValue struct {
	Status    model.Status    `json:"status"`
	Label     string          `json:"label"`
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

type SupplierCount struct {
	Supplier string `json:"supplier"`
	Count    int    `json:"count"`
}

type SupplierValue struct {
	Supplier  string          `json:"supplier"`
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

// Dashboard bundles every view for one dataset and selected year.
type Dashboard struct {
	Total               int                `json:"total"`
	ExpiringSoon        []ExpiringContract `json:"expiring_soon"`
	Distribution        []StatusCount      `json:"distribution"`
	Years               []int              `json:"years"`
	SelectedYear        int                `json:"selected_year"`
	ValueByStatus       []StatusValue      `json:"value_by_status"`
	TopSuppliersByCount []SupplierCount    `json:"top_suppliers_by_count"`
	TopSuppliersByValue []SupplierValue    `json:"top_suppliers_by_value"`
}

// Build computes all views. A zero year selects the most recent signing year.
func Build(rows []model.Contract, year int) Dashboard {
	years := Years(rows)
	if year == 0 && len(years) > 0 {
		year = years[0]
	}
	return Dashboard{
		Total:               len(rows),
		ExpiringSoon:        ExpiringSoon(rows),
		Distribution:        StatusDistribution(rows),
		Years:               years,
		SelectedYear:        year,
		ValueByStatus:       ValueByStatus(rows, year),
		TopSuppliersByCount: TopSuppliersByCount(rows, TopN),
		TopSuppliersByValue: TopSuppliersByValue(rows, TopN),
	}
}

// FilterByStatus keeps rows whose status is one of statuses, in input order.
// No statuses keeps every row.
func FilterByStatus(rows []model.Contract, statuses ...model.Status) []model.Contract {
	if len(statuses) == 0 {
		return rows
	}
	want := make(map[model.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]model.Contract, 0)
	for _, c := range rows {
		if want[c.Status] {
			out = append(out, c)
		}
	}
	return out
}

// FilterByYear keeps rows signed in year, in input order.
func FilterByYear(rows []model.Contract, year int) []model.Contract {
	out := make([]model.Contract, 0)
	for _, c := range rows {
		if c.Year == year {
			out = append(out, c)
		}
	}
	return out
}

// ExpiringSoon lists the contracts due within the expiring window.
func ExpiringSoon(rows []model.Contract) []ExpiringContract {
	out := make([]ExpiringContract, 0)
	for _, c := range FilterByStatus(rows, model.StatusExpiringSoon) {
		days := 0
		if c.DaysToExpire != nil {
			days = *c.DaysToExpire
		}
		out = append(out, ExpiringContract{
			Row:          c.Row,
			Object:       c.Object,
			Value:        FormatNullBRL(c.AccumulatedValue),
			DaysToExpire: days,
		})
	}
	return out
}

// StatusDistribution counts rows per status, most frequent first. Empty
// buckets are left out; the counts always add up to len(rows).
func StatusDistribution(rows []model.Contract) []StatusCount {
	counts := make(map[model.Status]int)
	for _, c := range rows {
		counts[c.Status]++
	}

	out := make([]StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StatusCount{Status: s, Label: s.Label(), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status.Rank() < out[j].Status.Rank()
	})
	return out
}

// Years returns the distinct signing years, newest first.
func Years(rows []model.Contract) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, c := range rows {
		if c.Year == 0 || seen[c.Year] {
			continue
		}
		seen[c.Year] = true
		years = append(years, c.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// ValueByStatus sums the accumulated value per status for contracts signed in
// year, largest sum first.
func ValueByStatus(rows []model.Contract, year int) []StatusValue {
	var order []model.Status
	sums := make(map[model.Status]decimal.Decimal)
	for _, c := range FilterByYear(rows, year) {
		if _, ok := sums[c.Status]; !ok {
			order = append(order, c.Status)
			sums[c.Status] = decimal.Zero
		}
		if c.AccumulatedValue.Valid {
			sums[c.Status] = sums[c.Status].Add(c.AccumulatedValue.Decimal)
		}
	}

	out := make([]StatusValue, 0, len(order))
	for _, s := range order {
		out = append(out, StatusValue{
			Status:    s,
			Label:     s.Label(),
			Value:     sums[s],
			Formatted: FormatBRL(sums[s]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out
}

// TopSuppliersByCount ranks suppliers of in-progress contracts by number of
// contracts. Ties keep the order in which suppliers first appear.
func TopSuppliersByCount(rows []model.Contract, n int) []SupplierCount {
	var order []string
	counts := make(map[string]int)
	for _, c := range activeWithSupplier(rows) {
		if _, ok := counts[c.SupplierName]; !ok {
			order = append(order, c.SupplierName)
		}
		counts[c.SupplierName]++
	}

	out := make([]SupplierCount, 0, len(order))
	for _, name := range order {
		out = append(out, SupplierCount{Supplier: name, Count: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return truncate(out, n)
}

// TopSuppliersByValue ranks suppliers of in-progress contracts by summed
// accumulated value. Ties keep the order in which suppliers first appear.
func TopSuppliersByValue(rows []model.Contract, n int) []SupplierValue {
	var order []string
	sums := make(map[string]decimal.Decimal)
	for _, c := range activeWithSupplier(rows) {
		if _, ok := sums[c.SupplierName]; !ok {
			order = append(order, c.SupplierName)
			sums[c.SupplierName] = decimal.Zero
		}
		if c.AccumulatedValue.Valid {
			sums[c.SupplierName] = sums[c.SupplierName].Add(c.AccumulatedValue.Decimal)
		}
	}

	out := make([]SupplierValue, 0, len(order))
	for _, name := range order {
		out = append(out, SupplierValue{
			Supplier:  name,
			Value:     sums[name],
			Formatted: FormatBRL(sums[name]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return truncate(out, n)
}

func activeWithSupplier(rows []model.Contract) []model.Contract {
	out := make([]model.Contract, 0)
	for _, c := range FilterByStatus(rows, model.StatusInProgress) {
		if c.SupplierName != "" {
			out = append(out, c)
		}
	}
	return out
}

func truncate[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
