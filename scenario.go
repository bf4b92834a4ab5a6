package isosurf

import (
	"github.com/pkg/errors"
)

// ErrUnknownScenario is returned by LookupScenario for numbers without a
// built-in scenario.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario bundles a field with the scan used to extract its surface.
type Scenario struct {
	Name  string
	Field Field
	Scan  ScanConfig
}

// Scenarios returns the built-in scenarios in order. Scenario 1 is the wave
// height field at isovalue 0 and scenario 2 is the saddle at isovalue -1.5.
func Scenarios() []Scenario {
	wave := DefaultScan()
	saddle := DefaultScan()
	saddle.Isovalue = -1.5
	return []Scenario{
		{Name: "wave", Field: Wave(), Scan: wave},
		{Name: "saddle", Field: Saddle(), Scan: saddle},
	}
}

// LookupScenario returns the built-in scenario numbered n, starting at 1.
func LookupScenario(n int) (Scenario, error) {
	all := Scenarios()
	if n < 1 || n > len(all) {
		return Scenario{}, errors.Wrapf(ErrUnknownScenario, "scenario %d (want 1..%d)", n, len(all))
	}
	return all[n-1], nil
}
