package ensemble

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// The JSON interchange format keeps each species as an object whose
// fixed keys are dG0, observable and folded; every other key is read
// as a ligand stoichiometry. This matches the nested-map persistence
// representation produced by ToMap.

type ensembleJSON struct {
	Ens         map[string]map[string]json.RawMessage `json:"ens"`
	GasConstant *float64                              `json:"gas_constant"`
}

// ParseJSON reads an ensemble from its JSON representation. Since JSON
// objects carry no order, species are added sorted by name.
func ParseJSON(rd io.Reader) (*Ensemble, error) {
	dec := json.NewDecoder(rd)
	var raw ensembleJSON
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("error parsing ensemble: %v", err)
	}
	if len(raw.Ens) == 0 {
		return nil, fmt.Errorf("ensemble file has no species")
	}

	gasConstant := GasConstant
	if raw.GasConstant != nil {
		gasConstant = *raw.GasConstant
	}
	e, err := New(gasConstant)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw.Ens))
	for name := range raw.Ens {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var (
			dG0        float64
			observable bool
			folded     = true
			stoich     = map[string]float64{}
		)
		for key, val := range raw.Ens[name] {
			switch key {
			case "dG0":
				if err := json.Unmarshal(val, &dG0); err != nil {
					return nil, fmt.Errorf("species %s: bad dG0: %v", name, err)
				}
			case "observable":
				if err := json.Unmarshal(val, &observable); err != nil {
					return nil, fmt.Errorf("species %s: bad observable flag: %v", name, err)
				}
			case "folded":
				if err := json.Unmarshal(val, &folded); err != nil {
					return nil, fmt.Errorf("species %s: bad folded flag: %v", name, err)
				}
			default:
				var v float64
				if err := json.Unmarshal(val, &v); err != nil {
					return nil, fmt.Errorf("species %s: bad stoichiometry for ligand %s: %v", name, key, err)
				}
				stoich[key] = v
			}
		}
		if err := e.AddSpecies(name, dG0, observable, folded, stoich); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ToMap returns a nested plain-data representation of the ensemble
// suitable for JSON serialization.
func (e *Ensemble) ToMap() map[string]interface{} {
	ens := make(map[string]interface{}, len(e.species))
	for _, sp := range e.species {
		rec := map[string]interface{}{
			"dG0":        sp.DG0,
			"observable": sp.Observable,
			"folded":     sp.Folded,
		}
		for lig, st := range sp.Stoich {
			rec[lig] = st
		}
		ens[sp.Name] = rec
	}
	return map[string]interface{}{
		"ens":          ens,
		"gas_constant": e.gasConstant,
	}
}

// WriteJSON serializes the ensemble in the format read by ParseJSON.
func (e *Ensemble) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e.ToMap())
}
