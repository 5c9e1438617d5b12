package models

// IngestRequest is the body of POST /api/v1/events.
// Timezone is an IANA name or UTC offset; empty means the server default.
type IngestRequest struct {
	Events   []RawEvent `json:"events"`
	Timezone string     `json:"tz,omitempty"`
}

// ComputeRequest is the body of POST /api/v1/compute.
// Now is an RFC 3339 instant; empty means the server clock.
type ComputeRequest struct {
	Events   []RawEvent            `json:"events"`
	Progress []AchievementProgress `json:"progress,omitempty"`
	Timezone string                `json:"tz,omitempty"`
	Now      string                `json:"now,omitempty"`
}
