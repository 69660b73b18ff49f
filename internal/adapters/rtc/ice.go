// Package rtc builds the ICE server list handed to WebRTC callers and
// callees in invitation extras.
package rtc

import (
	"fmt"

	"github.com/dkeye/webcat/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

const defaultSTUN = "stun:stun.l.google.com:19302"

func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{{URLs: []string{defaultSTUN}}}
}

// ICEServers converts configured servers, falling back to the public
// Google STUN server when none are set. TURN entries need credentials.
func ICEServers(cfgs []config.ICEServer) ([]webrtc.ICEServer, error) {
	if len(cfgs) == 0 {
		return DefaultICEServers(), nil
	}
	out := make([]webrtc.ICEServer, 0, len(cfgs))
	for i, c := range cfgs {
		if len(c.URLs) == 0 {
			return nil, fmt.Errorf("rtc: ice server %d: no urls", i)
		}
		for _, raw := range c.URLs {
			uri, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("rtc: ice server %d: %q: %w", i, raw, err)
			}
			turn := uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS
			if turn && (c.Username == "" || c.Credential == "") {
				return nil, fmt.Errorf("rtc: ice server %d: %q needs username and credential", i, raw)
			}
		}
		s := webrtc.ICEServer{URLs: c.URLs}
		if c.Username != "" {
			s.Username = c.Username
			s.Credential = c.Credential
			s.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, s)
	}
	return out, nil
}
