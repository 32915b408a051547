package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads observation rows:
//
//	date,spot,iv[,rate]
//
// where date is YYYY-MM-DD or RFC3339 and iv is quoted in unit. The
// returned observations always carry decimal IV. A header row ("date,...")
// is allowed, empty rows are skipped, and a missing rate column reads as zero.
func LoadCSV(r io.Reader, unit IVUnit) (*Series, error) {
	unit, err := ParseIVUnit(string(unit))
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []Observation
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}

		o, err := parseObservationRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		o.IV = unit.Decimal(o.IV)
		rows = append(rows, o)
	}
	return NewSeries(rows)
}

// LoadCSVFile opens path and reads it with LoadCSV.
func LoadCSVFile(path string, unit IVUnit) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, unit)
}

func parseObservationRow(row []string) (Observation, error) {
	if len(row) < 3 {
		return Observation{}, fmt.Errorf("bad row (need at least 3 cols date,spot,iv): %v", row)
	}

	d, err := ParseDay(strings.TrimSpace(row[0]))
	if err != nil {
		return Observation{}, err
	}
	spot, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return Observation{}, fmt.Errorf("bad spot %q: %w", row[1], err)
	}
	iv, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Observation{}, fmt.Errorf("bad iv %q: %w", row[2], err)
	}

	var rate float64
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		rate, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return Observation{}, fmt.Errorf("bad rate %q: %w", row[3], err)
		}
	}

	return Observation{Date: d, Spot: spot, IV: iv, Rate: rate}, nil
}
