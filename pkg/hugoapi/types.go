package hugoapi

import "encoding/json"

// SessionParams are the parameters for creating a backend session.
type SessionParams struct {
	// TechniqueID selects the sales technique to practice (e.g. "2.3").
	TechniqueID string `json:"techniqueId"`

	// Mode is the conversation mode, "COACH_CHAT" or "ROLEPLAY".
	Mode string `json:"mode,omitempty"`

	// Expert disables coaching hints when true.
	Expert bool `json:"isExpert,omitempty"`

	// Modality is the transport the session starts in: "chat", "audio"
	// or "video". Informational for the backend only.
	Modality string `json:"modality,omitempty"`

	// ViewMode is "admin" or "user".
	ViewMode string `json:"viewMode,omitempty"`
}

// Session is the backend's reply to a session create request.
type Session struct {
	ID             string            `json:"sessionId"`
	Phase          string            `json:"phase,omitempty"`
	Message        string            `json:"message,omitempty"`
	InitialMessage string            `json:"initialMessage,omitempty"`
	Onboarding     *OnboardingStatus `json:"onboardingStatus,omitempty"`
}

// Reply is a single blocking message exchange result.
type Reply struct {
	Response string `json:"response"`
	Phase    string `json:"phase,omitempty"`

	// Evaluation is opaque scoring data forwarded to the caller unchanged.
	Evaluation json.RawMessage `json:"evaluation,omitempty"`
}

// OnboardingStatus is trailing progress metadata the backend may attach to
// the end of a stream or a session create reply.
type OnboardingStatus struct {
	Complete bool            `json:"isComplete"`
	NextItem *OnboardingItem `json:"nextItem,omitempty"`
}

// OnboardingItem identifies the next taxonomy item to review.
type OnboardingItem struct {
	Module string `json:"module"`
	Key    string `json:"key"`
	Name   string `json:"name"`
}

// RoomCredentials bootstrap an audio room connection: the media transport
// URL plus a short-lived access token.
type RoomCredentials struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// AvatarCredentials bootstrap an avatar video stream: a signed session
// token and the avatar to render.
type AvatarCredentials struct {
	Token    string `json:"token"`
	AvatarID string `json:"avatarId,omitempty"`
}

// Technique is one entry of the read-only technique taxonomy.
type Technique struct {
	Number      string `json:"nummer"`
	Name        string `json:"naam"`
	Phase       string `json:"fase"`
	Parent      string `json:"parent,omitempty"`
	Description string `json:"description,omitempty"`
}
