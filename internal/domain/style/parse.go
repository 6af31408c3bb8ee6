package style

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// raw mirrors the recognized style keys. Pointers distinguish "absent" from zero
// so shorthands can be layered under per-edge keys.
type raw struct {
	Width     Dimension `mapstructure:"width"`
	Height    Dimension `mapstructure:"height"`
	MinWidth  Dimension `mapstructure:"minWidth"`
	MinHeight Dimension `mapstructure:"minHeight"`
	MaxWidth  Dimension `mapstructure:"maxWidth"`
	MaxHeight Dimension `mapstructure:"maxHeight"`

	Padding           *float64 `mapstructure:"padding"`
	PaddingHorizontal *float64 `mapstructure:"paddingHorizontal"`
	PaddingVertical   *float64 `mapstructure:"paddingVertical"`
	PaddingTop        *float64 `mapstructure:"paddingTop"`
	PaddingRight      *float64 `mapstructure:"paddingRight"`
	PaddingBottom     *float64 `mapstructure:"paddingBottom"`
	PaddingLeft       *float64 `mapstructure:"paddingLeft"`

	Margin           *float64 `mapstructure:"margin"`
	MarginHorizontal *float64 `mapstructure:"marginHorizontal"`
	MarginVertical   *float64 `mapstructure:"marginVertical"`
	MarginTop        *float64 `mapstructure:"marginTop"`
	MarginRight      *float64 `mapstructure:"marginRight"`
	MarginBottom     *float64 `mapstructure:"marginBottom"`
	MarginLeft       *float64 `mapstructure:"marginLeft"`

	Flex           *float64 `mapstructure:"flex"`
	FlexGrow       *float64 `mapstructure:"flexGrow"`
	FlexDirection  string   `mapstructure:"flexDirection"`
	JustifyContent string   `mapstructure:"justifyContent"`
	AlignItems     string   `mapstructure:"alignItems"`
	Position       string   `mapstructure:"position"`

	Top    Dimension `mapstructure:"top"`
	Right  Dimension `mapstructure:"right"`
	Bottom Dimension `mapstructure:"bottom"`
	Left   Dimension `mapstructure:"left"`

	BackgroundColor string   `mapstructure:"backgroundColor"`
	BorderRadius    float64  `mapstructure:"borderRadius"`
	BorderWidth     float64  `mapstructure:"borderWidth"`
	BorderColor     string   `mapstructure:"borderColor"`
	ShadowColor     string   `mapstructure:"shadowColor"`
	ShadowOpacity   *float64 `mapstructure:"shadowOpacity"`
	ShadowRadius    float64  `mapstructure:"shadowRadius"`
	ShadowOffset    Offset   `mapstructure:"shadowOffset"`
	Color           string   `mapstructure:"color"`
	FontSize        float64  `mapstructure:"fontSize"`
	FontWeight      string   `mapstructure:"fontWeight"`
	TextAlign       string   `mapstructure:"textAlign"`
}

var dimensionType = reflect.TypeOf(Dimension{})

// dimensionHook converts numbers and "N%" strings into Dimension values
func dimensionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != dimensionType {
		return data, nil
	}
	return ParseDimension(data)
}

// Parse decodes a flattened style map. Unrecognized keys are ignored.
// On malformed values the returned Style still carries every key that
// decoded cleanly, alongside a non-nil error describing the rest.
func Parse(m map[string]any) (Style, error) {
	var r raw
	var s Style
	if len(m) == 0 {
		return s, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       dimensionHook,
		WeaklyTypedInput: true,
		Result:           &r,
	})
	if err != nil {
		return s, fmt.Errorf("failed to create style decoder: %w", err)
	}
	decodeErr := dec.Decode(m)

	s.Width, s.Height = r.Width, r.Height
	s.MinWidth, s.MinHeight = r.MinWidth, r.MinHeight
	s.MaxWidth, s.MaxHeight = r.MaxWidth, r.MaxHeight

	s.Padding = expandEdges(r.Padding, r.PaddingHorizontal, r.PaddingVertical,
		r.PaddingTop, r.PaddingRight, r.PaddingBottom, r.PaddingLeft)
	s.Margin = expandEdges(r.Margin, r.MarginHorizontal, r.MarginVertical,
		r.MarginTop, r.MarginRight, r.MarginBottom, r.MarginLeft)

	switch {
	case r.FlexGrow != nil:
		s.FlexGrow = *r.FlexGrow
	case r.Flex != nil:
		s.FlexGrow = *r.Flex
	}
	if s.FlexGrow < 0 {
		s.FlexGrow = 0
	}
	s.FlexDirection = Direction(r.FlexDirection)
	s.JustifyContent = Justify(r.JustifyContent)
	s.AlignItems = Align(r.AlignItems)
	s.Position = Position(r.Position)
	s.Offsets = Offsets{Top: r.Top, Right: r.Right, Bottom: r.Bottom, Left: r.Left}

	s.Paint = Paint{
		BackgroundColor: r.BackgroundColor,
		BorderRadius:    r.BorderRadius,
		BorderWidth:     r.BorderWidth,
		BorderColor:     r.BorderColor,
		ShadowColor:     r.ShadowColor,
		ShadowRadius:    r.ShadowRadius,
		ShadowOffset:    r.ShadowOffset,
		Color:           r.Color,
		FontSize:        r.FontSize,
		FontWeight:      r.FontWeight,
		TextAlign:       r.TextAlign,
	}
	if r.ShadowOpacity != nil {
		s.Paint.ShadowOpacity = *r.ShadowOpacity
	} else if r.ShadowColor != "" {
		s.Paint.ShadowOpacity = 1
	}

	if decodeErr != nil {
		return s, fmt.Errorf("invalid style: %w", decodeErr)
	}
	return s, nil
}

// expandEdges layers shorthand keys: a per-edge key beats an axis key,
// which beats the all-edges key.
func expandEdges(all, horizontal, vertical, top, right, bottom, left *float64) Edges {
	pick := func(vals ...*float64) float64 {
		for _, v := range vals {
			if v != nil {
				return *v
			}
		}
		return 0
	}
	return Edges{
		Top:    pick(top, vertical, all),
		Right:  pick(right, horizontal, all),
		Bottom: pick(bottom, vertical, all),
		Left:   pick(left, horizontal, all),
	}
}

// Flatten merges a style value into a single map. Arrays are merged
// left-to-right (recursively) with later entries overriding earlier ones;
// nil, false and non-object entries contribute nothing.
func Flatten(v any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, v)
	return out
}

func flattenInto(out map[string]any, v any) {
	switch s := v.(type) {
	case map[string]any:
		for k, val := range s {
			out[k] = val
		}
	case []any:
		for _, item := range s {
			flattenInto(out, item)
		}
	}
}
