// Package variant enumerates the model variants the solver emulates.
//
// A variant is nothing more than a {method, bias, time-mode} cell in a
// 2x3 configuration matrix; there is no hierarchy behind it.
package variant

import "fmt"

// TimeMode selects how term numbers enter the feature encoding.
type TimeMode string

const (
	// TimeNone encodes no time information: plain matrix factorization.
	TimeNone TimeMode = ""
	// TimeCategorical encodes the term as a categorical feature in its
	// own index block (TimeSVD).
	TimeCategorical TimeMode = "cat"
	// TimeBinary encodes the term as a one-hot feature offset past the
	// column block (BPTF).
	TimeBinary TimeMode = "bin"
)

// Valid reports whether m is a known time mode.
func (m TimeMode) Valid() bool {
	switch m {
	case TimeNone, TimeCategorical, TimeBinary:
		return true
	}
	return false
}

// Variant is one model configuration passed to the solver.
type Variant struct {
	Name    string
	UseBias bool
	Time    TimeMode
}

// All lists the six canonical variants in comparison order.
var All = []Variant{
	{Name: "SVD", UseBias: false, Time: TimeNone},
	{Name: "BiasedSVD", UseBias: true, Time: TimeNone},
	{Name: "TimeSVD", UseBias: false, Time: TimeCategorical},
	{Name: "BiasedTimeSVD", UseBias: true, Time: TimeCategorical},
	{Name: "BPTF", UseBias: false, Time: TimeBinary},
	{Name: "BiasedBPTF", UseBias: true, Time: TimeBinary},
}

// ByName resolves a variant by its canonical name.
func ByName(name string) (Variant, error) {
	for _, v := range All {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("unknown model variant %q", name)
}

// TimeSuffix is the artifact-name marker for the variant's time mode,
// empty when no time information is encoded.
func (v Variant) TimeSuffix() string {
	if v.Time == TimeNone {
		return ""
	}
	return "time-" + string(v.Time)
}
