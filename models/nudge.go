package models

// NudgeRequest accepts either the role-based or the room-based target field.
type NudgeRequest struct {
	TargetRole string `json:"targetRole"`
	Room       string `json:"room"`
	From       string `json:"from,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Target returns the addressed identity, preferring targetRole.
func (r NudgeRequest) Target() string {
	if r.TargetRole != "" {
		return r.TargetRole
	}
	return r.Room
}

// NudgePayload is the JSON document the service worker receives.
type NudgePayload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Tag    string `json:"tag"`
	From   string `json:"from,omitempty"`
	SentAt int64  `json:"sentAt"`
}

type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeGone      Outcome = "gone"
	OutcomeTransient Outcome = "transient_error"
)

// DeliveryResult is the outcome of one endpoint within a dispatch.
type DeliveryResult struct {
	Endpoint string
	Outcome  Outcome
	Err      error
}

type DispatchReport struct {
	NudgeID   string
	Attempted int
	Delivered int
	Pruned    int
	Failed    int
	Results   []DeliveryResult
}

type NudgeResponse struct {
	Message   string `json:"message"`
	NudgeID   string `json:"nudgeId"`
	Delivered int    `json:"delivered"`
	Pruned    int    `json:"pruned"`
}
