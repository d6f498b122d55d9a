package models

import (
	"encoding/json"
	"time"
)

// ActivityContent is an interactive activity document fetched from the
// external content store. Questions stay opaque to this API.
type ActivityContent struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Kind      string          `json:"kind"`
	Questions json.RawMessage `json:"questions"`
	UpdatedAt time.Time       `json:"updated_at"`
}
