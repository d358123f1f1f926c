package domain

const (
	StatusBacklog    = "backlog"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Statuses lists the kanban columns in board order.
var Statuses = []string{StatusBacklog, StatusInProgress, StatusCompleted}

// Priorities lists priorities from lowest to highest.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

type Task struct {
	ID              string   `json:"id"`
	OwnerID         string   `json:"owner_id" validate:"required"`
	Title           string   `json:"title" validate:"required"`
	Description     string   `json:"description,omitempty"`
	Status          string   `json:"status" enum:"backlog,in-progress,completed" validate:"oneof=backlog in-progress completed"`
	Priority        string   `json:"priority" enum:"low,medium,high" validate:"oneof=low medium high"`
	DueDate         *string  `json:"due_date,omitempty" format:"date-time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Tags            []string `json:"tags"`
	AIGenerated     bool     `json:"ai_generated"`
	CalendarEventID *string  `json:"calendar_event_id,omitempty"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
}

// TaskDraft is the structured result of deriving a task from free text.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     *string  `json:"due_date,omitempty" format:"date-time"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

type Drawing struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id" validate:"required"`
	TaskID     *string `json:"task_id,omitempty"`
	Name       string  `json:"name" validate:"required"`
	Data       string  `json:"data"`
	PreviewKey string  `json:"preview_key,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

type VoiceRecording struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"owner_id"`
	TaskID          *string `json:"task_id,omitempty"`
	Transcript      string  `json:"transcript"`
	Format          string  `json:"format"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	Language        string  `json:"language"`
	AudioKey        string  `json:"audio_key,omitempty"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
}

// CalendarToken is the stored OAuth grant for an owner's calendar.
type CalendarToken struct {
	OwnerID      string `json:"owner_id"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	TokenType    string `json:"token_type"`
	Expiry       string `json:"expiry,omitempty" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

// AISuggestion is produced per request and never stored.
type AISuggestion struct {
	Type        string             `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Confidence  float64            `json:"confidence"`
	Metadata    SuggestionMetadata `json:"metadata"`
}

type SuggestionMetadata struct {
	SuggestedPriority string   `json:"suggested_priority,omitempty"`
	SuggestedTags     []string `json:"suggested_tags,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	OwnerID    string `json:"owner_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
