package ingest

import (
	"fmt"
	"slices"
	"strings"

	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

// columnSynonyms maps lower-cased header names to canonical names.
var columnSynonyms = map[string]string{
	"temp":        models.ColumnTemp,
	"temperature": models.ColumnTemp,
	"humidity":    models.ColumnHumidity,
	"noted_date":  models.ColumnNotedDate,
	"ts":          models.ColumnNotedDate,
	"date":        models.ColumnNotedDate,
	"smoke":       models.ColumnSmoke,
}

// NormalizeHeader trims and lower-cases every column name and maps known
// synonyms onto canonical names. Unknown columns pass through. A name that
// collides with an earlier column gets a ".N" suffix so no values are lost.
func NormalizeHeader(header []string) []string {
	normalized := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, column := range header {
		name := strings.ToLower(strings.TrimSpace(column))
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if canonical, ok := columnSynonyms[name]; ok {
			name = canonical
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		normalized[i] = name
	}
	return normalized
}

// MissingColumns lists required columns absent from a normalized header.
func MissingColumns(header []string) []string {
	var missing []string
	for _, column := range models.RequiredColumns {
		if !slices.Contains(header, column) {
			missing = append(missing, column)
		}
	}
	return missing
}

func isCanonical(column string) bool {
	switch column {
	case models.ColumnID, models.ColumnRoomID, models.ColumnNotedDate, models.ColumnTemp,
		models.ColumnLocation, models.ColumnHumidity, models.ColumnSmoke:
		return true
	}
	return false
}
