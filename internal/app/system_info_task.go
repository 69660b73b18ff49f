package app

import (
	"context"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
)

// RequestSystemInfoTask asks a freshly logged in robot for its network
// interfaces unless it has already reported properties.
type RequestSystemInfoTask struct {
	Users     core.UserRegistry
	Directory core.Directory
	Robot     string
}

func (t *RequestSystemInfoTask) Run(context.Context) {
	u := t.Users.Loaded(t.Robot)
	if u == nil || u.Status() != domain.StatusOnline || len(u.Properties()) > 0 {
		return
	}
	log.Debug().Str("module", "app.tasks").Str("robot", t.Robot).Msg("requesting system info")
	t.Directory.Publish(u.HomePath(), core.TopicSystemInfoReq,
		domain.SystemInfoRequest{Properties: []string{domain.PropertyNetworkInterfaces}})
}
