package typeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndValidate(t *testing.T) {
	id := NewPanelID()
	require.NoError(t, Validate(id, PrefixPanel))
	assert.Error(t, Validate(id, PrefixBorder))
	assert.Error(t, Validate("not-an-id", PrefixPanel))
	assert.NotEqual(t, id, NewPanelID())
}
