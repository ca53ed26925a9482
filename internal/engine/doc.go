// Package engine implements the workflow execution engine
//
// This package contains the run context, variable interpolation, the step
// executor with its per-type handlers, the sequential workflow runner, and
// the Engine facade that ties loading, history, and event publication
// together
package engine
