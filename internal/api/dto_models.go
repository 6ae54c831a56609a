package api

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HeartbeatRequest is the periodic playback progress report sent while a
// viewer is watching. Seconds is the playback time elapsed since the previous
// heartbeat, not a running total.
type HeartbeatRequest struct {
	ContentID string `json:"contentId" binding:"required"`
	Seconds   int64  `json:"seconds" binding:"required,gt=0"`
}

// CompleteRequest ends a playback session and flushes any buffered watch
// time for the content immediately. Minutes optionally carries a whole-minute
// total the client tallied itself while heartbeats could not be delivered
// (offline playback); it is applied on top of the buffered seconds.
type CompleteRequest struct {
	ContentID string `json:"contentId" binding:"required"`
	Minutes   int64  `json:"minutes" binding:"omitempty,gte=0"`
}

// CompleteResponse reports the minutes persisted by the final flush.
type CompleteResponse struct {
	ContentID      string `json:"contentId"`
	MinutesFlushed int64  `json:"minutesFlushed"`
}

// RecalculateResponse describes a manual aggregation run that completed.
type RecalculateResponse struct {
	Message       string `json:"message"`
	Degraded      bool   `json:"degraded"`
	PartialErrors int    `json:"partialErrors,omitempty"`
}
