package workflow

import (
	"fmt"
	"sort"

	"github.com/javajoker/licensing-portal/internal/models"
)

// SortEvents orders events by created_at, ties broken by sequence id.
func SortEvents(events []models.TransitionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}

// Reconcile checks that events form the audit trail of app and returns them
// in timeline order. app and events must come from one consistent read, so
// an event past app's revision is a write whose status update never landed
// and fails like any other break in the chain.
func Reconcile(app *models.Application, events []models.TransitionEvent) ([]models.TransitionEvent, error) {
	visible := make([]models.TransitionEvent, 0, len(events))
	for _, ev := range events {
		if ev.ApplicationUID != app.UID {
			return nil, Integrity(fmt.Sprintf("event %d belongs to application %s", ev.ID, ev.ApplicationUID))
		}
		if ev.Revision > app.Revision {
			return nil, Integrity(fmt.Sprintf("event %d of application %s is at revision %d but the application is at %d", ev.ID, app.UID, ev.Revision, app.Revision))
		}
		visible = append(visible, ev)
	}
	SortEvents(visible)

	if len(visible) == 0 {
		return nil, Integrity(fmt.Sprintf("application %s has no events", app.UID))
	}
	if int64(len(visible)) != app.Revision {
		return nil, Integrity(fmt.Sprintf("application %s is at revision %d but has %d events", app.UID, app.Revision, len(visible)))
	}
	if visible[0].FromStatus != nil {
		return nil, Integrity(fmt.Sprintf("first event of application %s has from_status %q", app.UID, *visible[0].FromStatus))
	}

	for i := 1; i < len(visible); i++ {
		prev, cur := visible[i-1], visible[i]
		if cur.FromStatus == nil || *cur.FromStatus != prev.ToStatus {
			return nil, Integrity(fmt.Sprintf("event chain of application %s breaks at event %d", app.UID, cur.ID))
		}
		if cur.Revision != prev.Revision+1 {
			return nil, Integrity(fmt.Sprintf("event chain of application %s skips revision after %d", app.UID, prev.Revision))
		}
	}

	if last := visible[len(visible)-1]; last.ToStatus != app.Status {
		return nil, Integrity(fmt.Sprintf("application %s has status %q but its last event ends at %q", app.UID, app.Status, last.ToStatus))
	}
	return visible, nil
}
