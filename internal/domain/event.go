package domain

type EventType string

const (
	EventSystemLogout       EventType = "SystemLogout"
	EventStatusUpdate       EventType = "StatusUpdate"
	EventCapabilityUpdate   EventType = "CapabilityUpdate"
	EventPropertyUpdate     EventType = "PropertyUpdate"
	EventActivityInvitation EventType = "ActivityInvitation"
	EventInvitationReply    EventType = "InvitationReply"
	EventCancelInvitation   EventType = "CancelInvitation"
	EventJoinActivity       EventType = "JoinActivity"
	EventExitActivity       EventType = "ExitActivity"
)

// UserEvent is pushed on a user's event topic. Username names the user the
// event is about, which is not necessarily the receiver.
type UserEvent struct {
	Username string    `json:"username"`
	Type     EventType `json:"type"`
	Data     []any     `json:"data"`
}

func NewEvent(username string, typ EventType, data ...any) UserEvent {
	if data == nil {
		data = []any{}
	}
	return UserEvent{Username: username, Type: typ, Data: data}
}

// SessionPing is published each ping round. PeriodMillis is the deadline
// for the client's pong.
type SessionPing struct {
	PeriodMillis int64 `json:"period_millis"`
}

const (
	PropertyNetworkInterfaces = "NetworkInterfaces"
	PropertyDevices           = "Devices"
)

// SystemInfoRequest asks a robot to report the listed properties.
type SystemInfoRequest struct {
	Properties []string `json:"properties"`
}

type VideoInstructionKind string

const (
	VideoStartStream VideoInstructionKind = "StartStream"
	VideoStopStream  VideoInstructionKind = "StopStream"
)

// VideoInputServicePath is where robots upload frames for a channel.
const VideoInputServicePath = "/interbot/video/in"

type VideoInstruction struct {
	Instruction VideoInstructionKind `json:"instruction"`
	ServicePath string               `json:"service_path"`
	Channel     string               `json:"channel"`
}

func StartStream(channel string) VideoInstruction {
	return VideoInstruction{Instruction: VideoStartStream, ServicePath: VideoInputServicePath, Channel: channel}
}

func StopStream(channel string) VideoInstruction {
	return VideoInstruction{Instruction: VideoStopStream, ServicePath: VideoInputServicePath, Channel: channel}
}
