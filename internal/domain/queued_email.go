package domain

import "time"

// QueuedEmail is a deferred notification awaiting retry after a failed send.
// Rows are created by the notification path, mutated only by the retry
// worker and never deleted; exhausted rows stay behind as failure records.
type QueuedEmail struct {
	ID        string
	To        []string
	Subject   string
	BodyText  string
	BodyHTML  string
	Attempts  int
	LastError string
	SendAfter *time.Time
	Sent      bool
	SentAt    *time.Time
	CreatedAt time.Time
}

const maxBackoff = time.Hour

// NextBackoff returns the delay before the next delivery attempt, given the
// attempt count after the failure. Doubles per attempt, capped at one hour.
func NextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	// 2^6*60s already exceeds the cap.
	if attempts >= 6 {
		return maxBackoff
	}
	backoff := time.Duration(1<<uint(attempts)) * time.Minute
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
