package entity

import "time"

// Intent is an unstructured, recognized user request. It is consumed once by
// the intent router and never persisted.
type Intent struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name"`
	Confidence float64           `json:"confidence"`
	RawText    string            `json:"raw_text"`
	Parameters map[string]string `json:"parameters,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}
