package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/AnTengye/contractvigency/backend/model"
)

const (
	minYear = 1900
	maxYear = 9999

	// Largest serial the 1900 date system can express (9999-12-31).
	maxExcelSerial = 2958465
)

// excelEpoch is day zero of the spreadsheet 1900 date system. Starting at
// 1899-12-30 absorbs the phantom 1900-02-29 for every serial after it.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order. Day-first layouts follow the Brazilian
// convention of the public procurement exports.
var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2T15:04:05",
	time.RFC3339,
	"2006/1/2",
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006",
	"20060102",
}

// ParseDate turns a raw cell into a calendar date. Anything it cannot read,
// including empty cells and out of range values, is reported as missing.
func ParseDate(raw string) (model.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Date{}, false
	}

	if d, ok := parseLayouts(s); ok {
		return d, true
	}
	return parseExcelSerial(s)
}

func parseLayouts(s string) (model.Date, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < minYear || t.Year() > maxYear {
			return model.Date{}, false
		}
		return model.DateOf(t), true
	}
	return model.Date{}, false
}

func parseExcelSerial(s string) (model.Date, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Date{}, false
	}
	days := math.Floor(v)
	if days < 1 || days > maxExcelSerial {
		return model.Date{}, false
	}
	return model.DateOf(excelEpoch.AddDate(0, 0, int(days))), true
}
