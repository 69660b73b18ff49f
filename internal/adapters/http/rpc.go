package http

import (
	"github.com/dkeye/webcat/internal/app"
	"github.com/dkeye/webcat/internal/core"
	"github.com/gin-gonic/gin"
)

type rpcFunc func(c *gin.Context, u *core.User, sid string) (any, error)

type badArgs struct{ err error }

func (e badArgs) Error() string { return errBadRequest + ": " + e.err.Error() }
func (e badArgs) Unwrap() error { return e.err }

func bind[T any](c *gin.Context) (T, error) {
	var args T
	if err := c.ShouldBindJSON(&args); err != nil {
		return args, badArgs{err}
	}
	return args, nil
}

type startActivityArgs struct {
	Activity string `json:"activity" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type exitActivityArgs struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

type inviteArgs struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Username      string `json:"username" binding:"required"`
	Role          string `json:"role" binding:"required"`
}

type invitationReplyArgs struct {
	InvitationID string `json:"invitation_id" binding:"required"`
	Accept       bool   `json:"accept"`
}

type setPasswordArgs struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// rpcTable lists every method reachable through /api/rpc/:method.
func rpcTable(svc *app.Service) map[string]rpcFunc {
	return map[string]rpcFunc{
		"startActivity": func(c *gin.Context, u *core.User, sid string) (any, error) {
			args, err := bind[startActivityArgs](c)
			if err != nil {
				return nil, err
			}
			return svc.StartActivity(u.Name(), sid, args.Activity, args.Role)
		},
		"exitActivity": func(c *gin.Context, u *core.User, sid string) (any, error) {
			args, err := bind[exitActivityArgs](c)
			if err != nil {
				return nil, err
			}
			if err := svc.ExitActivity(u.Name(), sid, args.ParticipantID); err != nil {
				return nil, err
			}
			return struct{}{}, nil
		},
		"invite": func(c *gin.Context, u *core.User, sid string) (any, error) {
			args, err := bind[inviteArgs](c)
			if err != nil {
				return nil, err
			}
			return svc.Invite(u.Name(), sid, args.ParticipantID, args.Username, args.Role), nil
		},
		"invitationReply": func(c *gin.Context, u *core.User, sid string) (any, error) {
			args, err := bind[invitationReplyArgs](c)
			if err != nil {
				return nil, err
			}
			return svc.InvitationReply(u.Name(), sid, args.InvitationID, args.Accept)
		},
		"setPassword": func(c *gin.Context, u *core.User, sid string) (any, error) {
			args, err := bind[setPasswordArgs](c)
			if err != nil {
				return nil, err
			}
			ok, err := svc.SetPassword(c.Request.Context(), u.Name(), sid, args.OldPassword, args.NewPassword)
			if err != nil {
				return nil, err
			}
			return gin.H{"ok": ok}, nil
		},
	}
}
