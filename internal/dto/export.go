package dto

import "time"

// ExportTicket acknowledges a queued grade-sheet export. The download URL
// becomes servable once the background render finishes.
type ExportTicket struct {
	ExportID  string    `json:"exportId"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}
