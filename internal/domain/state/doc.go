// Package state implements hook-style state cells that persist across
// execution passes.
//
// Cells are addressed by acquisition order inside one component instance.
// The order must be stable between passes: a cell acquired conditionally
// shifts every later cell of the same instance onto the wrong value and
// nothing detects it, apart from the optional debug check on the cell count.
//
// Instances are keyed by their position in the tree plus the component
// name. An instance that is not rendered during a pass is released when the
// pass ends, so its state starts fresh if it appears again.
package state
