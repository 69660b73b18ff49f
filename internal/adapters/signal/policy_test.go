package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyByName(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]BackpressureAction{"": DropFrame, "drop": DropFrame, "kick": CloseConn} {
		p, err := PolicyByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, p.OnBackpressure(nil), name)
	}
	_, err := PolicyByName("block")
	assert.Error(t, err)
}
