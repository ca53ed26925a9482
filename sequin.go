// Package sequin runs declarative YAML workflows against a pluggable task
// router
package sequin

const (
	Name    = "sequin"
	Version = "1.0.0"
)
