package usecase

import (
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// newUpdate builds an update with a fresh ID.
func newUpdate(ids domain.IDGenerator, now time.Time, typ domain.UpdateType, content string, prov *domain.Provenance) domain.Update {
	return domain.Update{
		ID:         ids.NewID(),
		Content:    content,
		Type:       typ,
		Timestamp:  now,
		Provenance: prov,
	}
}

// assignIDs gives every update produced by a domain transition its own ID.
func assignIDs(ids domain.IDGenerator, updates []domain.Update) []domain.Update {
	for i := range updates {
		if updates[i].ID == "" {
			updates[i].ID = ids.NewID()
		}
	}
	return updates
}

// normalizeLabels trims labels and drops blanks and duplicates, keeping order.
func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
