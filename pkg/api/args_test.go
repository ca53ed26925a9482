package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/sequin/pkg/api"
)

func TestArgsGetString(t *testing.T) {
	args := api.Args{"name": "scan", "count": 7}

	assert.Equal(t, "scan", args.GetString("name", "x"))
	assert.Equal(t, "x", args.GetString("count", "x"))
	assert.Equal(t, "x", args.GetString("missing", "x"))

	var empty api.Args
	assert.Equal(t, "x", empty.GetString("name", "x"))
}
