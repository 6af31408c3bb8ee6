// Package style decodes declarative style objects into typed layout and paint properties.
//
// Style values arrive from user code as loosely typed maps (numbers, strings,
// nested objects) or arrays of such maps. This package flattens arrays,
// decodes recognized keys and silently ignores everything else.
//
// Key Components:
//   - Dimension: point or percentage length, resolved against a container at layout time
//   - Edges: per-edge spacing with shorthand expansion (padding, paddingHorizontal, paddingTop...)
//   - Paint: the renderer-facing subset (colors, radius, border, shadow, text)
//   - Flatten: left-to-right merge of style arrays, later keys win
//
// Example:
//
//	s, err := style.Parse(style.Flatten(props["style"]))
//	if err != nil {
//		logger.Warn("partial style", zap.Error(err))
//	}
package style
