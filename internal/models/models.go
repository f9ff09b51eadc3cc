package models

import "time"

// Slot is a recurring production occurrence within a day.
type Slot string

const (
	SlotMorning   Slot = "MORNING"
	SlotAfternoon Slot = "AFTERNOON"
	SlotEvening   Slot = "EVENING"
)

// Slots lists every slot in schedule order.
var Slots = []Slot{SlotMorning, SlotAfternoon, SlotEvening}

// ParseSlot validates a raw slot string.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(s) {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return Slot(s), true
	}
	return "", false
}

// TopicStatus tracks whether a topic has been consumed by a production run.
type TopicStatus string

const (
	TopicPending TopicStatus = "PENDING"
	TopicUsed    TopicStatus = "USED"
)

type Topic struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Source    string      `json:"source"`
	Score     int         `json:"score"`
	Status    TopicStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

type Script struct {
	ID            string    `json:"id"`
	TopicID       string    `json:"topic_id"`
	Content       string    `json:"content"`
	PromptVersion string    `json:"prompt_version"`
	OutputHash    string    `json:"output_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

type Offer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hoplink   string    `json:"hoplink"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatus is the VideoJob state machine:
// PENDING -> PROCESSING -> {COMPLETED, FAILED}.
// COMPLETED carries an independent published flag that flips false->true once.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// VideoJob is the central orchestration record. The (Slot, ScheduledFor) pair
// is unique and acts as the idempotency key for a production occurrence.
// Version is the optimistic concurrency token checked by every mutation.
type VideoJob struct {
	ID           string    `json:"id"`
	ScriptID     string    `json:"script_id"`
	OfferID      *string   `json:"offer_id,omitempty"`
	Slot         Slot      `json:"slot"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Status       JobStatus `json:"status"`
	Attempts     int       `json:"attempts"`
	RenderID     *string   `json:"render_id,omitempty"`
	VideoURL     *string   `json:"video_url,omitempty"`
	Published    bool      `json:"published"`
	YoutubeURL   *string   `json:"youtube_url,omitempty"`
	Error        *string   `json:"error,omitempty"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
}

// Settings is the single app_settings row consulted before every scheduled run.
type Settings struct {
	AutomationEnabled bool      `json:"automation_enabled"`
	Timezone          string    `json:"timezone"`
	UpdatedAt         time.Time `json:"updated_at"`
}
