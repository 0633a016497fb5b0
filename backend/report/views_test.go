package report

import (
	"fmt"
	"testing"

	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(n int) *int { return &n }

func contract(row int, status model.Status, supplier string, value string, year int) model.Contract {
	c := model.Contract{
		Row:          row,
		Object:       fmt.Sprintf("objeto %d", row),
		SupplierName: supplier,
		Year:         year,
		Status:       status,
	}
	if value != "" {
		c.AccumulatedValue = decimal.NewNullDecimal(decimal.RequireFromString(value))
	}
	switch status {
	case model.StatusExpired:
		c.DaysToExpire = days(-5)
	case model.StatusExpiringSoon:
		c.DaysToExpire = days(row)
	case model.StatusInProgress:
		c.DaysToExpire = days(100)
	}
	return c
}

func fixture() []model.Contract {
	return []model.Contract{
		contract(2, model.StatusInProgress, "Alpha", "100", 2024),
		contract(3, model.StatusExpiringSoon, "Beta", "1234567.8", 2024),
		contract(4, model.StatusExpired, "Alpha", "50", 2023),
		contract(5, model.StatusInProgress, "Beta", "500", 2024),
		contract(6, model.StatusInvalidDate, "Gamma", "", 2024),
		contract(7, model.StatusInProgress, "Alpha", "10", 2023),
		contract(8, model.StatusInProgress, "", "999999", 2024),
		contract(9, model.StatusExpiringSoon, "Delta", "", 0),
	}
}

func TestExpiringSoon(t *testing.T) {
	got := ExpiringSoon(fixture())
	want := []ExpiringContract{
		{Row: 3, Object: "objeto 3", Value: "R$ 1.234.567,80", DaysToExpire: 3},
		{Row: 9, Object: "objeto 9", Value: "", DaysToExpire: 9},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExpiringSoon mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusDistributionPartition(t *testing.T) {
	rows := fixture()
	got := StatusDistribution(rows)

	total := 0
	seen := make(map[model.Status]bool)
	for _, sc := range got {
		assert.False(t, seen[sc.Status], "status %s listed twice", sc.Status)
		seen[sc.Status] = true
		assert.Positive(t, sc.Count)
		total += sc.Count
	}
	assert.Equal(t, len(rows), total)

	require.Len(t, got, 4)
	assert.Equal(t, model.StatusInProgress, got[0].Status)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, "Em andamento", got[0].Label)
	assert.Equal(t, model.StatusExpiringSoon, got[1].Status)
	// ties fall back to canonical order
	assert.Equal(t, model.StatusInvalidDate, got[2].Status)
	assert.Equal(t, model.StatusExpired, got[3].Status)
}

func TestStatusDistributionEmpty(t *testing.T) {
	assert.Empty(t, StatusDistribution(nil))
}

func TestYears(t *testing.T) {
	assert.Equal(t, []int{2024, 2023}, Years(fixture()))
	assert.Empty(t, Years(nil))
}

func TestValueByStatus(t *testing.T) {
	got := ValueByStatus(fixture(), 2024)
	require.Len(t, got, 3)

	assert.Equal(t, model.StatusExpiringSoon, got[0].Status)
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("1234567.8")))
	assert.Equal(t, "R$ 1.234.567,80", got[0].Formatted)

	assert.Equal(t, model.StatusInProgress, got[1].Status)
	assert.True(t, got[1].Value.Equal(decimal.RequireFromString("1000599")))

	// missing values sum to zero but the bucket is still reported
	assert.Equal(t, model.StatusInvalidDate, got[2].Status)
	assert.True(t, got[2].Value.IsZero())

	assert.Empty(t, ValueByStatus(fixture(), 1999))
}

func TestTopSuppliersByCount(t *testing.T) {
	got := TopSuppliersByCount(fixture(), TopN)
	want := []SupplierCount{
		{Supplier: "Alpha", Count: 2},
		{Supplier: "Beta", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopSuppliersByCount mismatch (-want +got):\n%s", diff)
	}
}

func TestTopSuppliersByValue(t *testing.T) {
	got := TopSuppliersByValue(fixture(), TopN)
	require.Len(t, got, 2)
	assert.Equal(t, "Beta", got[0].Supplier)
	assert.Equal(t, "R$ 500,00", got[0].Formatted)
	assert.Equal(t, "Alpha", got[1].Supplier)
	assert.True(t, got[1].Value.Equal(decimal.NewFromInt(110)))
}

func TestTopSuppliersTruncatesAndStaysStable(t *testing.T) {
	var rows []model.Contract
	for i := 0; i < 15; i++ {
		rows = append(rows, contract(i+2, model.StatusInProgress, fmt.Sprintf("S%02d", i), "10", 2024))
	}
	// one supplier pulls ahead
	rows = append(rows, contract(20, model.StatusInProgress, "S07", "10", 2024))
	rows = append(rows, contract(21, model.StatusExpired, "S14", "1000", 2024))

	byCount := TopSuppliersByCount(rows, TopN)
	require.Len(t, byCount, TopN)
	assert.Equal(t, "S07", byCount[0].Supplier)
	assert.Equal(t, "S00", byCount[1].Supplier)
	assert.Equal(t, "S01", byCount[2].Supplier)
	for i := 1; i < len(byCount); i++ {
		assert.GreaterOrEqual(t, byCount[i-1].Count, byCount[i].Count)
	}

	byValue := TopSuppliersByValue(rows, TopN)
	require.Len(t, byValue, TopN)
	assert.Equal(t, "S07", byValue[0].Supplier)
	for i := 1; i < len(byValue); i++ {
		assert.True(t, byValue[i-1].Value.GreaterThanOrEqual(byValue[i].Value))
	}
	assert.Equal(t, "S09", byValue[TopN-1].Supplier)
}

func TestFilters(t *testing.T) {
	rows := fixture()

	assert.Len(t, FilterByStatus(rows), len(rows))
	assert.Len(t, FilterByStatus(rows, model.StatusInProgress), 4)
	assert.Len(t, FilterByStatus(rows, model.StatusExpired, model.StatusInvalidDate), 2)
	assert.Len(t, FilterByYear(rows, 2023), 2)
	assert.Empty(t, FilterByYear(rows, 1990))
}

func TestBuild(t *testing.T) {
	d := Build(fixture(), 0)
	assert.Equal(t, 8, d.Total)
	assert.Equal(t, 2024, d.SelectedYear)
	assert.Equal(t, []int{2024, 2023}, d.Years)
	assert.Len(t, d.ExpiringSoon, 2)
	assert.Len(t, d.ValueByStatus, 3)

	d = Build(fixture(), 2023)
	assert.Equal(t, 2023, d.SelectedYear)
	assert.Len(t, d.ValueByStatus, 2)

	empty := Build(nil, 0)
	assert.Equal(t, 0, empty.SelectedYear)
	assert.Empty(t, empty.Distribution)
}
