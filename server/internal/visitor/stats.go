package visitor

import (
	"time"

	"github.com/siriusexpedition/sirius/server/internal/store"
)

// Record field names in the remote document.
const (
	FieldTotal       = "total"
	FieldToday       = "today"
	FieldLastUpdated = "lastUpdated"
)

// Stats is the shared visitor counter record.
type Stats struct {
	Total       int64     `json:"total"`
	Today       int64     `json:"today"`
	LastUpdated time.Time `json:"last_updated"`
}

// StatsFromDocument resolves a remote document into Stats. Missing or
// malformed fields default to zero; negative counts are clamped to zero.
func StatsFromDocument(doc store.Document) Stats {
	total, _ := store.Int64(doc, FieldTotal)
	today, _ := store.Int64(doc, FieldToday)
	updated, _ := store.Time(doc, FieldLastUpdated)
	return Stats{
		Total:       max(total, 0),
		Today:       max(today, 0),
		LastUpdated: updated,
	}
}
