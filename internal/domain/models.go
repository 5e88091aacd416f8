package domain

// Status is the coarse classification of a registration page.
type Status string

const (
	StatusUnknown Status = "UNKNOWN"
	StatusClosed  Status = "CLOSED"
	StatusOpen    Status = "OPEN"
	StatusFull    Status = "FULL"
	StatusError   Status = "ERROR"
)

// Target is a monitored registration page with its last-known state.
//
// IntervalHotSec, HotFrom and HotTo are persisted and clamped on
// creation but the scheduler does not yet consult them for cadence
// selection; their clock and timezone semantics are still undecided.
type Target struct {
	ID                int64   `json:"id"`
	Label             string  `json:"label"`
	URL               string  `json:"url"`
	Cheval            *string `json:"cheval"`
	Cavalier          *string `json:"cavalier"`
	IntervalNormalSec int64   `json:"interval_normal_sec"`
	IntervalHotSec    int64   `json:"interval_hot_sec"`
	HotFrom           *string `json:"hot_from"`
	HotTo             *string `json:"hot_to"`
	LastStatus        Status  `json:"last_status"`
	LastCheckedAt     *int64  `json:"last_checked_at"`
	LastChangeAt      *int64  `json:"last_change_at"`
	LastError         *string `json:"last_error"`
	LastSlots         *int    `json:"last_slots"`
}

// AddTargetPayload is the user-supplied shape for creating a Target.
// Absent intervals fall back to the store defaults (300s normal, 45s
// hot) before clamping.
type AddTargetPayload struct {
	Label             string  `json:"label"`
	URL               string  `json:"url"`
	Cheval            *string `json:"cheval"`
	Cavalier          *string `json:"cavalier"`
	IntervalNormalSec *int64  `json:"interval_normal_sec"`
	IntervalHotSec    *int64  `json:"interval_hot_sec"`
	HotFrom           *string `json:"hot_from"`
	HotTo             *string `json:"hot_to"`
}

// Event is one append-only audit row per poll outcome.
type Event struct {
	ID       int64  `json:"id"`
	TargetID int64  `json:"target_id"`
	TS       int64  `json:"ts"`
	Status   Status `json:"status"`
	Note     string `json:"note"`
}

// AlertKind distinguishes the two notification edges.
type AlertKind string

const (
	AlertOpened     AlertKind = "opened"
	AlertSlotsFreed AlertKind = "slots_freed"
)

// Alert is the tuple handed to notification sinks when a target opens
// or a previously full target frees a slot.
type Alert struct {
	TargetID int64     `json:"id"`
	Label    string    `json:"label"`
	URL      string    `json:"url"`
	Kind     AlertKind `json:"kind"`
}

// Epreuve is one competition class discovered on a competition page.
type Epreuve struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}
