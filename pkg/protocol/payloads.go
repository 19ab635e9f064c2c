package protocol

import "time"

// NotificationKind is the severity taxonomy for notifications.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindError   NotificationKind = "error"
)

// NotificationCategory groups notifications by product area.
type NotificationCategory string

const (
	CategoryApplication NotificationCategory = "application"
	CategorySystem      NotificationCategory = "system"
	CategorySocial      NotificationCategory = "social"
	CategoryOperator    NotificationCategory = "operator"
)

// Notification is a point-in-time message targeted at one or more
// identities. The fabric carries it across the wire only; persistence
// and read-state belong to the notification service.
type Notification struct {
	ID        string               `json:"id"` // idempotency key for client-side dedup
	Kind      NotificationKind     `json:"kind"`
	Category  NotificationCategory `json:"category"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Timestamp time.Time            `json:"timestamp"`
	IsRead    bool                 `json:"isRead"`
	ActionRef string               `json:"actionRef,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
}

type ProfileUpdate struct {
	UserID    string         `json:"userId"`
	ProfileID string         `json:"profileId"`
	Changes   map[string]any `json:"changes"`
	Timestamp time.Time      `json:"timestamp"`
}

type StatusUpdate struct {
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingUpdate struct {
	UserID    string    `json:"userId"`
	IsTyping  bool      `json:"isTyping"`
	Timestamp time.Time `json:"timestamp"`
}

type SystemUpdate struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// ErrorPayload is the only error shape clients ever see.
type ErrorPayload struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Suggestion is a single ranked search result.
type Suggestion struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Text     string `json:"text"`
	Subtitle string `json:"subtitle,omitempty"`
}

// ProfileIDResult answers a validateProfileId request.
type ProfileIDResult struct {
	IsValid     bool     `json:"isValid"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// HealthSnapshot is broadcast to the operator monitoring room and
// appended to the health log.
type HealthSnapshot struct {
	Status    string        `json:"status"` // healthy | degraded | unhealthy
	Timestamp time.Time     `json:"timestamp"`
	Metrics   HealthMetrics `json:"metrics"`
}

type HealthMetrics struct {
	TotalIdentities  int     `json:"totalIdentities"`
	ActiveIdentities int     `json:"activeIdentities"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	HeapUsedBytes    uint64  `json:"heapUsedBytes"`
	HeapTotalBytes   uint64  `json:"heapTotalBytes"`
	CPUPercent       float64 `json:"cpuPercent"`
	DatastoreRTTMs   int64   `json:"datastoreRttMs"`
	DatastoreUp      bool    `json:"datastoreUp"`
}
