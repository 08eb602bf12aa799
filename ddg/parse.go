package ddg

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"evoens/ensemble"
)

// ParseCSV reads a long-form mutation effect file. The header names
// the site column, the mutation column and then one column per
// species:
//
//	site,mut,M,MX
//	1,A1V,0.0,1.6
//	1,A1P,3.2,0.4
//
// Repeated (site,mut) rows overwrite earlier ones.
func ParseCSV(ens *ensemble.Ensemble, rd io.Reader) (*Table, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading ddg header: %v", err)
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("ddg file needs site, mutation and at least one species column")
	}

	raw := Raw{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading ddg file: %v", err)
		}
		line++
		if len(rec) != len(header) {
			return nil, fmt.Errorf("ddg line %d has %d fields, expected %d", line, len(rec), len(header))
		}

		site, mut := rec[0], rec[1]
		if raw[site] == nil {
			raw[site] = map[string]map[string]float64{}
		}
		entry := map[string]float64{}
		for i := 2; i < len(header); i++ {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("ddg line %d: bad value for species %s: %v", line, header[i], err)
			}
			entry[header[i]] = v
		}
		raw[site][mut] = entry
	}

	return New(ens, raw)
}

// ParseJSON reads the nested site -> mutation -> species -> ddG form.
func ParseJSON(ens *ensemble.Ensemble, rd io.Reader) (*Table, error) {
	var raw Raw
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error parsing ddg file: %v", err)
	}
	return New(ens, raw)
}
