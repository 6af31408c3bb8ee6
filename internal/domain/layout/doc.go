// Package layout computes pixel boxes for a node tree with a reduced
// flexbox algorithm.
//
// The algorithm is a single recursive pass, not a constraint solver:
//
//  1. The root resolves its own size against the container (flexGrow fills it,
//     otherwise literal, percentage or the full container), clamped to min/max.
//  2. Padding is subtracted to obtain the content box.
//  3. In-flow children are sized along the main axis: fixed sizes first, the
//     remaining space is shared by flex-grow weight, and children with neither
//     get FallbackSize.
//  4. justifyContent picks a leading offset and inter-child gap; alignItems
//     picks the cross position. Each child is then arranged recursively.
//  5. Absolutely positioned children leave the flow and are placed by their
//     insets against the parent box.
//
// Not supported on purpose: wrapping, baseline alignment, flex-shrink and any
// intrinsic text measurement. The output is visually plausible, not
// pixel-identical to a browser or Yoga.
//
// Example:
//
//	box := layout.Layout(root, 390, 844)
package layout
