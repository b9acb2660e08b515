package ticket

import "time"

// Record is one processed ticket as persisted, inbound email plus the
// pipeline outcome.
type Record struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Reply      string    `json:"reply"`
	CreatedAt  time.Time `json:"created_at"`
}
