package optimize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FloatParameter is a named bounded float64 model parameter.
type FloatParameter interface {
	Name() string
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	Get() float64
	Set(float64)
	InRange() bool
	ValueInRange(float64) bool
}

// FloatParameters is an array of FloatParameter.
type FloatParameters []FloatParameter

// Append adds a parameter.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Values fills a slice with current parameter values, allocating one
// if iv is nil.
func (p FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(p))
	} else {
		v = iv
	}
	for i, par := range p {
		v[i] = par.Get()
	}
	return
}

// SetValues sets all parameter values from a slice.
func (p FloatParameters) SetValues(v []float64) error {
	if len(v) != len(p) {
		return fmt.Errorf("expected %d parameter values, got %d", len(p), len(v))
	}
	for i, par := range p {
		par.Set(v[i])
	}
	return nil
}

// ValuesInRange returns true if all values are within the parameter
// bounds.
func (p FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(p) {
		return false
	}
	for i, par := range p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// InRange returns true if all current values are within bounds.
func (p FloatParameters) InRange() bool {
	for _, par := range p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// Update copies values from another parameter array of the same
// length.
func (p FloatParameters) Update(src FloatParameters) {
	for i := range p {
		p[i].Set(src[i].Get())
	}
}

// NamesString returns tab-separated parameter names.
func (p FloatParameters) NamesString() (s string) {
	for i, par := range p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab-separated parameter values.
func (p FloatParameters) ValuesString() (s string) {
	for i, par := range p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// MarshalJSON encodes the parameters as a JSON object preserving
// parameter order.
func (p FloatParameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, par := range p {
		if i != 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(par.Name())
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(par.Get())
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON sets parameter values by name from a JSON object.
// Unknown names are an error, missing names keep their value.
func (p FloatParameters) UnmarshalJSON(data []byte) error {
	values := make(map[string]float64)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	byName := make(map[string]FloatParameter, len(p))
	for _, par := range p {
		byName[par.Name()] = par
	}
	for name, v := range values {
		par, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		par.Set(v)
	}
	return nil
}

// BasicFloatParameter is a float64-backed FloatParameter.
type BasicFloatParameter struct {
	*float64
	name     string
	min      float64
	max      float64
	onChange func()
}

// NewBasicFloatParameter creates a new BasicFloatParameter from a
// float64 pointer, unbounded by default.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64: par,
		name:    name,
		min:     math.Inf(-1),
		max:     math.Inf(+1),
	}
}

// Name returns the parameter name.
func (p *BasicFloatParameter) Name() string {
	return p.name
}

// SetMin sets the lower bound.
func (p *BasicFloatParameter) SetMin(min float64) {
	p.min = min
}

// SetMax sets the upper bound.
func (p *BasicFloatParameter) SetMax(max float64) {
	p.max = max
}

// GetMin returns the lower bound.
func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

// GetMax returns the upper bound.
func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

// SetOnChange sets a callback which is called on every value change.
func (p *BasicFloatParameter) SetOnChange(f func()) {
	p.onChange = f
}

// Get returns the current value.
func (p *BasicFloatParameter) Get() float64 {
	return *p.float64
}

// Set changes the value, calling the onChange callback if the value
// actually changed.
func (p *BasicFloatParameter) Set(v float64) {
	if *p.float64 == v {
		return
	}
	*p.float64 = v
	if p.onChange != nil {
		p.onChange()
	}
}

// ValueInRange returns true if v is within bounds.
func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	return v >= p.min && v <= p.max
}

// InRange returns true if the current value is within bounds.
func (p *BasicFloatParameter) InRange() bool {
	return p.ValueInRange(*p.float64)
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'f', 6, 64)
}
