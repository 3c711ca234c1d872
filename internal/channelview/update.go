package channelview

import "staymate/pkg/model"

type UpdateKind string

const (
	UpdateHistory      UpdateKind = "history"
	UpdateMessage      UpdateKind = "message"
	UpdateRoster       UpdateKind = "roster"
	UpdateNudge        UpdateKind = "nudge"
	UpdateNotification UpdateKind = "notification"
	UpdateDismiss      UpdateKind = "dismiss"
	UpdateSendFailed   UpdateKind = "send_failed"
	UpdateError        UpdateKind = "error"
	UpdateRevoked      UpdateKind = "revoked"
)

// Update is one change of the view pushed to the client.
type Update struct {
	Kind         UpdateKind             `json:"kind"`
	Messages     []*model.Message       `json:"messages,omitempty"`
	Message      *model.Message         `json:"message,omitempty"`
	Roster       []model.PresenceRecord `json:"roster,omitempty"`
	Nudge        *model.Nudge           `json:"nudge,omitempty"`
	NudgeState   model.NudgeState       `json:"nudge_state,omitempty"`
	Notification *model.Notification    `json:"notification,omitempty"`
	DismissID    string                 `json:"dismiss_id,omitempty"`
	Draft        string                 `json:"draft,omitempty"`
	Error        string                 `json:"error,omitempty"`
}
