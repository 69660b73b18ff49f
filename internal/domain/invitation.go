package domain

type Response string

const (
	ResponseReject  Response = "Reject"
	ResponseAccept  Response = "Accept"
	ResponsePending Response = "Pending"
)

// InvitationResult is the outcome of an invite. Policy refusals are
// Reject values, not errors.
type InvitationResult struct {
	Response     Response `json:"response"`
	InvitationID string   `json:"invitation_id"`
	Reason       string   `json:"reason"`
	Extra        any      `json:"extra,omitempty"`
}

func Accept(extra any) InvitationResult {
	return InvitationResult{Response: ResponseAccept, Extra: extra}
}

func Reject(reason string) InvitationResult {
	return InvitationResult{Response: ResponseReject, Reason: reason}
}

func Pending(invitationID string) InvitationResult {
	return InvitationResult{Response: ResponsePending, InvitationID: invitationID}
}
