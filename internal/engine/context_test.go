package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/pkg/api"
)

func TestNewContext(t *testing.T) {
	start := time.Unix(1700000000, 500_000_000)
	seed := api.Args{"device": "X1", engine.StartTimeKey: "stale"}

	vars := engine.NewContext(seed, start)

	assert.Equal(t, "X1", vars["device"])
	assert.Equal(t, 1700000000.5, vars[engine.StartTimeKey])

	vars.Set("device", "X2")
	assert.Equal(t, "X1", seed["device"])
	assert.Equal(t, "X2", vars["device"])
}

func TestNewContextNilSeed(t *testing.T) {
	vars := engine.NewContext(nil, time.Unix(10, 0))
	assert.Len(t, vars, 1)
	assert.Equal(t, float64(10), vars[engine.StartTimeKey])
}
