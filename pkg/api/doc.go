// Package api defines the core data types for the workflow engine
//
// This package contains the types shared across the engine, including
// workflow definitions, step variants, task and step results, run events,
// and HTTP messages
package api
