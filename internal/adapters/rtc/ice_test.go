package rtc

import (
	"testing"

	"github.com/dkeye/webcat/internal/config"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICEServers(t *testing.T) {
	t.Parallel()

	got, err := ICEServers(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultICEServers(), got)

	got, err = ICEServers([]config.ICEServer{
		{URLs: []string{"stun:stun.example.org:3478"}},
		{URLs: []string{"turn:turn.example.org:3478?transport=udp"}, Username: "u", Credential: "p"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Username)
	assert.Equal(t, "u", got[1].Username)
	assert.Equal(t, webrtc.ICECredentialTypePassword, got[1].CredentialType)

	tests := map[string][]config.ICEServer{
		"no urls":        {{}},
		"bad scheme":     {{URLs: []string{"http://example.org"}}},
		"turn anonymous": {{URLs: []string{"turn:turn.example.org:3478"}}},
	}
	for name, cfgs := range tests {
		_, err := ICEServers(cfgs)
		assert.Error(t, err, name)
	}
}
