package prediction

import (
	"time"

	"github.com/Brownie44l1/cancer-api/internal/classify"
)

// Record is the persisted outcome of one inference. Result and Suggestion are
// always the pair produced by classify.Classify.
type Record struct {
	ID         string          `json:"id" firestore:"id"`
	Result     classify.Result `json:"result" firestore:"result"`
	Suggestion string          `json:"suggestion" firestore:"suggestion"`
	CreatedAt  time.Time       `json:"createdAt" firestore:"createdAt"`
}

// NewRecord classifies score and stamps the record with createdAt in UTC,
// truncated to milliseconds so it survives every store unchanged.
func NewRecord(id string, score float64, createdAt time.Time) Record {
	result, suggestion := classify.Classify(score)
	return Record{
		ID:         id,
		Result:     result,
		Suggestion: suggestion,
		CreatedAt:  createdAt.UTC().Truncate(time.Millisecond),
	}
}

// HistoryEntry is the response view of a record in the history listing.
type HistoryEntry struct {
	ID      string        `json:"id"`
	History HistoryDetail `json:"history"`
}

type HistoryDetail struct {
	Result     classify.Result `json:"result"`
	CreatedAt  time.Time       `json:"createdAt"`
	Suggestion string          `json:"suggestion"`
	ID         string          `json:"id"`
}

func NewHistoryEntry(r Record) HistoryEntry {
	return HistoryEntry{
		ID: r.ID,
		History: HistoryDetail{
			Result:     r.Result,
			CreatedAt:  r.CreatedAt,
			Suggestion: r.Suggestion,
			ID:         r.ID,
		},
	}
}
