package domain

// Activity and role names known to the server.
const (
	ActivityControl = "control"
	RoleController  = "controller"
	RoleRobot       = "robot"

	ActivityWebRTC = "webrtc"
	RoleCaller     = "caller"
	RoleCallee     = "callee"

	ActivityVideoStream = "videostream"
	RoleSender          = "sender"
	RoleReceiver        = "receiver"
)

// Client type names.
const (
	ClientWeb      = "web"
	ClientInterbot = "interbot"
)

// CapabilityInfo names an (activity, role) pair on the wire.
type CapabilityInfo struct {
	Activity string `json:"activity"`
	Role     string `json:"role"`
}

// ActivityStartInfo is returned by startActivity and invitationReply.
// Both fields are empty when nothing was joined.
type ActivityStartInfo struct {
	ActivityID    string `json:"activity_id"`
	ParticipantID string `json:"participant_id"`
}

func (i ActivityStartInfo) Empty() bool {
	return i.ActivityID == "" && i.ParticipantID == ""
}
