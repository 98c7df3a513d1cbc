package app

import (
	"context"
	"time"

	"doctrack/internal/domain/document"
)

// AgeBuckets splits open documents by days since creation.
type AgeBuckets struct {
	Total     int `json:"total"`
	AvgDays   int `json:"avgDays"`
	UpToWeek  int `json:"upToWeek"`
	UpToMonth int `json:"upToMonth"`
	Older     int `json:"older"`
}

type Stats struct {
	Total  int                            `json:"total"`
	Status map[document.Status]int        `json:"status"`
	Wins   map[document.WinsStatus]int    `json:"wins"`
	Age    map[document.Status]AgeBuckets `json:"age"`
}

// AgeDays is whole days since createdAt, never negative.
func AgeDays(createdAt int64, now time.Time) int {
	if createdAt == 0 {
		return 0
	}
	d := int(now.Sub(time.UnixMilli(createdAt)) / (24 * time.Hour))
	if d < 0 {
		return 0
	}
	return d
}

// Stats summarizes the active collection: counts per status and WINS status
// and an age breakdown for documents still in Revision or Routing.
func (a *App) Stats(ctx context.Context) (Stats, error) {
	if _, err := a.actor(ctx); err != nil {
		return Stats{}, err
	}
	now := a.now()
	docs := a.store.List()
	st := Stats{
		Total:  len(docs),
		Status: map[document.Status]int{},
		Wins:   map[document.WinsStatus]int{},
		Age:    map[document.Status]AgeBuckets{},
	}
	for _, s := range document.Statuses {
		st.Status[s] = 0
	}
	for _, w := range document.WinsStatuses {
		st.Wins[w] = 0
	}
	sums := map[document.Status]int{}
	for _, d := range docs {
		st.Status[d.Status]++
		w := d.WinsStatus
		if w == "" {
			w = document.WinsPending
		}
		st.Wins[w]++
		open := d.Status == document.StatusRevision || d.Status == document.StatusRouting
		if !open || d.CreatedAt == 0 {
			continue
		}
		days := AgeDays(d.CreatedAt, now)
		b := st.Age[d.Status]
		b.Total++
		switch {
		case days <= 7:
			b.UpToWeek++
		case days <= 30:
			b.UpToMonth++
		default:
			b.Older++
		}
		st.Age[d.Status] = b
		sums[d.Status] += days
	}
	for _, s := range []document.Status{document.StatusRevision, document.StatusRouting} {
		b := st.Age[s]
		if b.Total > 0 {
			b.AvgDays = (sums[s] + b.Total/2) / b.Total
		}
		st.Age[s] = b
	}
	return st, nil
}
