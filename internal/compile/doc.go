// Package compile turns the mappings of a task into an executable pipeline.
//
// Every mapping compiles to a Program: a topologically ordered list of steps,
// one per component of its transformation. A step wrapping a primitive
// function applies it to its inputs; a step wrapping a transformation runs
// that transformation's own program as a single opaque step. Inputs are read
// from records by accessors, which know their attribute path, filter and
// ordinal; the result of the terminal step is written to the mapping's
// output path.
//
// # Wiring
//
// A component names its inputs through the "inputString" parameter mapping,
// a comma separated list where each entry is either the name of a
// transformation parameter (or mapping input) or the name of an upstream
// component. Without that entry a component consumes the outputs of its
// input components in order, or all transformation inputs when it has none.
// Every other parameter mapping is a literal argument and must name a
// parameter the function declares. A component carrying a parameter mapping
// whose key starts with "__TRANSFORMATION_OUTPUT_VARIABLE__" is the terminal
// step; otherwise the unique component nothing depends on is.
//
// A compiled Pipeline holds no per-record state and may be evaluated from
// several goroutines at once.
package compile
