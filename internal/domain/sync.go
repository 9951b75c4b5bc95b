package domain

import "time"

// SyncResult reports what one sync pass did. Created and Updated come from
// the storage layer's upsert bookkeeping; Processed counts records received
// from the storefront, including skipped malformed ones.
type SyncResult struct {
	Processed  int64 `json:"processed"`
	Created    int64 `json:"created"`
	Updated    int64 `json:"updated"`
	DutyReview int64 `json:"duty_review"` // flagged for customs handling, excluded from VAT returns
}

// SyncEvent is published after every sync attempt, successful or not.
type SyncEvent struct {
	ConnectionID string
	Full         bool
	Result       *SyncResult
	Err          string
	Duration     time.Duration
	At           time.Time
}

// Failed reports whether the attempt ended in an error.
func (e *SyncEvent) Failed() bool {
	return e.Err != ""
}
