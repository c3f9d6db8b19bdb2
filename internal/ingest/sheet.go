package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/credit-approval-system/internal/engine"
)

var zero = decimal.Zero

// table хранит первый лист книги с нормализованными заголовками.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	// Сырые значения: даты приходят серийными номерами, а не в формате ячейки.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	t := &table{columns: make(map[string]int, len(rows[0]))}
	for i, h := range rows[0] {
		t.columns[normalizeHeader(h)] = i
	}
	for _, row := range rows[1:] {
		if !isBlank(row) {
			t.rows = append(t.rows, row)
		}
	}

	return t, nil
}

// normalizeHeader приводит заголовок к виду "monthly_salary".
func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *table) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := t.columns[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (t *table) cell(row []string, name string) string {
	i, ok := t.columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var errEmpty = errors.New("value is empty")

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return zero, errEmpty
	}
	return decimal.NewFromString(s)
}

// parseIntValue разбирает целое, записанное в том числе как "12.0".
func parseIntValue(s string) (int, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s is not an integer", s)
	}
	return int(d.IntPart()), nil
}

func parseInt(s string) (int64, error) {
	n, err := parseIntValue(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("identifier must be positive, got %d", n)
	}
	return int64(n), nil
}

// parsePhone принимает номер строкой или числом, в том числе в экспоненциальной записи.
func parsePhone(s string) (string, error) {
	if s == "" {
		return "", errEmpty
	}
	if strings.HasPrefix(s, "+") {
		return s, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return s, nil
	}
	return d.String(), nil
}

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
}

// parseDate разбирает серийный номер даты Excel или дату в одном из текстовых форматов.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmpty
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return engine.Date(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return engine.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
