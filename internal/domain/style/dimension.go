package style

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit distinguishes how a Dimension is resolved
type Unit int

const (
	UnitAuto Unit = iota
	UnitPoint
	UnitPercent
)

// Dimension is a length that is either undeclared (auto), an absolute
// number of points, or a percentage of the containing box.
type Dimension struct {
	Value float64
	Unit  Unit
}

// Auto is the undeclared dimension
var Auto = Dimension{}

// Points returns an absolute dimension
func Points(v float64) Dimension {
	return Dimension{Value: v, Unit: UnitPoint}
}

// Percent returns a dimension relative to the container, 50 meaning half
func Percent(v float64) Dimension {
	return Dimension{Value: v, Unit: UnitPercent}
}

// IsAuto reports whether the dimension was not declared
func (d Dimension) IsAuto() bool {
	return d.Unit == UnitAuto
}

// Resolve converts the dimension to points against a container length.
// The second return value is false for auto dimensions.
func (d Dimension) Resolve(container float64) (float64, bool) {
	switch d.Unit {
	case UnitPoint:
		return d.Value, true
	case UnitPercent:
		return container * d.Value / 100, true
	default:
		return 0, false
	}
}

// String formats the dimension the way it would be written in a style object
func (d Dimension) String() string {
	switch d.Unit {
	case UnitPoint:
		return strconv.FormatFloat(d.Value, 'f', -1, 64)
	case UnitPercent:
		return strconv.FormatFloat(d.Value, 'f', -1, 64) + "%"
	default:
		return "auto"
	}
}

// ParseDimension converts a raw style value into a Dimension.
// Numbers are points, "N%" strings are percentages and "auto" is undeclared.
func ParseDimension(v any) (Dimension, error) {
	switch n := v.(type) {
	case nil:
		return Auto, nil
	case float64:
		return pointsOf(n)
	case float32:
		return pointsOf(float64(n))
	case int:
		return Points(float64(n)), nil
	case int32:
		return Points(float64(n)), nil
	case int64:
		return Points(float64(n)), nil
	case Dimension:
		return n, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" || s == "auto" {
			return Auto, nil
		}
		if strings.HasSuffix(s, "%") {
			f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
			if err != nil {
				return Auto, fmt.Errorf("invalid percentage %q", n)
			}
			return Percent(f), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
		if err != nil {
			return Auto, fmt.Errorf("invalid dimension %q", n)
		}
		return pointsOf(f)
	default:
		return Auto, fmt.Errorf("unsupported dimension type %T", v)
	}
}

func pointsOf(f float64) (Dimension, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Auto, fmt.Errorf("dimension must be finite, got %v", f)
	}
	return Points(f), nil
}
