package pedestrian

import (
	"fmt"
	"strconv"
	"strings"
)

// HeaderMap maps each schema column to its position in a file whose
// columns may appear in any order.
type HeaderMap [NumColumns]int

// NewHeaderMap resolves schema columns against a header row by
// case-insensitive name. Extra columns are ignored.
func NewHeaderMap(header []string) (HeaderMap, error) {
	var m HeaderMap
	for i := range m {
		m[i] = -1
	}
	for pos, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for col, want := range Columns {
			if m[col] < 0 && strings.EqualFold(name, want) {
				m[col] = pos
				break
			}
		}
	}

	var missing []string
	for col, pos := range m {
		if pos < 0 {
			missing = append(missing, Columns[col])
		}
	}
	if len(missing) > 0 {
		return HeaderMap{}, fmt.Errorf("%w: header missing columns %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return m, nil
}

// Parse parses a row laid out according to the header.
func (m HeaderMap) Parse(fields []string) (Record, error) {
	for col, pos := range m {
		if pos >= len(fields) {
			return Record{}, fmt.Errorf("%w: row has %d fields, %s expected at position %d",
				ErrSchemaMismatch, len(fields), Columns[col], pos)
		}
	}
	return parse(func(col int) string { return fields[m[col]] })
}

// InWindow reports whether the raw Year and Month fields of a row fall in
// the given year and month. It applies the same rules as the storage-side
// query (integer year, trimmed case-insensitive month name) without
// parsing the rest of the row. Rows too short to carry either field are
// outside every window.
func (m HeaderMap) InWindow(fields []string, year int, monthName string) bool {
	yearPos, monthPos := m[ColYear], m[ColMonth]
	if yearPos >= len(fields) || monthPos >= len(fields) {
		return false
	}
	y, err := strconv.Atoi(strings.TrimSpace(fields[yearPos]))
	if err != nil || y != year {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(fields[monthPos]), monthName)
}
