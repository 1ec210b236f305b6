package types

import "time"

// Failure describes one item that could not be mutated.
type Failure struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title,omitempty"`
	Error  string `json:"error"`
}

// RunSummary is the outcome of a bulk run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Action     Action    `json:"action"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	OK         int       `json:"ok"`
	Failed     int       `json:"failed"`
	Stopped    bool      `json:"stopped"`
	Failures   []Failure `json:"failures,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
