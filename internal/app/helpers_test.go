package app

import (
	"testing"
	"time"

	"github.com/dkeye/webcat/internal/core"
	"github.com/dkeye/webcat/internal/core/coretest"
	"github.com/dkeye/webcat/internal/domain"
)

type fixture struct {
	env     *core.Env
	dir     *coretest.Directory
	store   *coretest.Store
	users   *UserManager
	tasks   *TaskManager
	videos  *VideoChannelManager
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir:    coretest.NewDirectory(),
		store:  coretest.NewStore(),
		videos: NewVideoChannelManager(),
		tasks:  NewTaskManager(time.Hour),
	}
	f.env = &core.Env{
		Directory:      f.dir,
		Store:          f.store,
		Catalog:        core.NewCatalog(),
		Videos:         f.videos,
		PingPeriod:     time.Second,
		MaxMissedPings: 2,
	}
	f.users = NewUserManager(f.env)
	f.service = &Service{
		Env:             f.env,
		Users:           f.users,
		Tasks:           f.tasks,
		Limiter:         NewLoginRateLimiter(3, time.Minute),
		SystemInfoDelay: 30 * time.Second,
	}
	f.store.AddUser("alice", "alice-pw", domain.UserTypeHuman)
	f.store.AddUser("bob", "bob-pw", domain.UserTypeHuman)
	f.store.AddUser("r1", "r1-pw", domain.UserTypeRobot)
	f.store.AddUser("root", "root-pw", domain.UserTypeAdmin)
	return f
}
