package model

import "time"

// Trigger statuses.
const (
	TriggerActive   = "ACTIVE"
	TriggerInactive = "INACTIVE"
)

// Lifetime is how long a trigger stays active.
type Lifetime struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"` // DAYS, HOURS, MINUTES
}

// Trigger is a saved search re-evaluated every Frequency minutes.
type Trigger struct {
	TriggerID string      `json:"triggerId"`
	Username  string      `json:"username"`
	CreatedAt time.Time   `json:"createdAt"`
	Criteria  []Criterion `json:"criteria"`
	Lifetime  Lifetime    `json:"lifetime"`
	Frequency int         `json:"frequency"`
	Status    string      `json:"status"`
}

// ApplyDefaults fills lifetime, frequency and status when unset.
func (t *Trigger) ApplyDefaults() {
	if t.Lifetime.Value <= 0 {
		t.Lifetime = Lifetime{Value: 15, Unit: "DAYS"}
	}
	if t.Lifetime.Unit == "" {
		t.Lifetime.Unit = "DAYS"
	}
	if t.Frequency <= 0 {
		t.Frequency = 5
	}
	if t.Status == "" {
		t.Status = TriggerActive
	}
}
