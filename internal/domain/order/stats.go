package order

import "time"

// Stats is the per-bucket tally of a set of orders.
type Stats struct {
	ByStatus  map[Status]int
	Scheduled int
	Total     int
	Today     int
	ThisWeek  int
}

// Aggregate tallies orders in a single pass. When filter is non-empty only
// orders with that status are considered. Orders with an unrecognised status
// count towards Total but towards no bucket.
func Aggregate(orders []Order, filter Status, now time.Time) Stats {
	st := Stats{ByStatus: make(map[Status]int, len(KnownStatuses))}
	for _, s := range KnownStatuses {
		st.ByStatus[s] = 0
	}

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := dayStart.AddDate(0, 0, -daysSinceMonday(dayStart))

	for i := range orders {
		o := &orders[i]
		if filter != "" && o.Status != filter {
			continue
		}
		st.Total++
		if _, ok := st.ByStatus[o.Status]; ok {
			st.ByStatus[o.Status]++
		}
		if o.IsScheduled {
			st.Scheduled++
		}

		created := o.CreatedAt.UTC()
		if created.IsZero() || created.After(now) {
			continue
		}
		if !created.Before(dayStart) {
			st.Today++
		}
		if !created.Before(weekStart) {
			st.ThisWeek++
		}
	}
	return st
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
