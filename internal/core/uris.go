package core

import (
	"strings"

	"github.com/dkeye/webcat/internal/domain"
)

// Topics relative to a user's home path.
const (
	EventsBasePath       = "/events"
	TopicSessionPing     = EventsBasePath + "/session/ping"
	TopicSessionPong     = EventsBasePath + "/session/pong"
	TopicUserEvent       = EventsBasePath + "/user_event"
	WebRTCEventBasePath  = EventsBasePath + "/webrtc"
	RobotBasePath        = "/robot"
	TopicRobotCtrlPing   = RobotBasePath + "/control/ping"
	TopicRobotCtrlPong   = RobotBasePath + "/control/pong"
	TopicRobotVelocity   = RobotBasePath + "/base/velocity"
	TopicRobotVideo      = RobotBasePath + "/video"
	TopicRobotPanTilt    = RobotBasePath + "/video/panTilt"
	TopicSystemInfoReq   = RobotBasePath + "/system/info/request"
	TopicSystemInfoResp  = RobotBasePath + "/system/info/response"
	TopicAdminExecute    = "/admin/execute"
	webrtcP2PTopicPrefix = "/p2p"
)

func HomePath(username string) string {
	return "/user/" + username + "/home"
}

func FullEventPath(username, topic string) string {
	return HomePath(username) + topic
}

// OwnerOf returns the username whose home contains path.
func OwnerOf(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/user/")
	if !ok {
		return "", false
	}
	name, tail, ok := strings.Cut(rest, "/")
	if !ok || !strings.HasPrefix(tail, "home") {
		return "", false
	}
	return name, true
}

// CreateEventPaths registers every topic a user of the given type owns.
func CreateEventPaths(dir Directory, username string, typ domain.UserType) {
	for _, t := range []string{TopicSessionPing, TopicSessionPong, TopicUserEvent, WebRTCEventBasePath} {
		dir.CreatePath(FullEventPath(username, t))
	}
	if typ != domain.UserTypeRobot {
		return
	}
	for _, t := range []string{
		TopicRobotCtrlPing, TopicRobotCtrlPong, TopicRobotVelocity, TopicRobotVideo,
		TopicRobotPanTilt, TopicSystemInfoReq, TopicSystemInfoResp, TopicAdminExecute,
	} {
		dir.CreatePath(FullEventPath(username, t))
	}
}

// createP2PTopic allocates a topic under the caller's webrtc path and links
// it into the callee's. The returned name is what clients subscribe to.
func createP2PTopic(dir Directory, caller, callee string) string {
	topic := webrtcP2PTopicPrefix + domain.RandomString(16)
	full := FullEventPath(caller, WebRTCEventBasePath) + topic
	dir.CreatePath(full)
	dir.Link(FullEventPath(callee, WebRTCEventBasePath), full)
	return "event:webrtc" + topic
}

func destroyP2PTopic(dir Directory, p2pTopic, caller, callee string) {
	i := strings.LastIndex(p2pTopic, "/")
	if i < 0 {
		return
	}
	full := FullEventPath(caller, WebRTCEventBasePath) + p2pTopic[i:]
	dir.Unlink(FullEventPath(callee, WebRTCEventBasePath), full)
	dir.RemovePath(full)
}

func grantRobotControlAccess(dir Directory, robot, controller string) {
	dir.Link(FullEventPath(controller, EventsBasePath), FullEventPath(robot, RobotBasePath))
}

func denyRobotControlAccess(dir Directory, robot, controller string) {
	dir.Unlink(FullEventPath(controller, EventsBasePath), FullEventPath(robot, RobotBasePath))
}
