package report

import "time"

// Window is an inclusive [From, To] receipt-date range, YYYY-MM-DD.
type Window struct {
	From string
	To   string
}

// Resolve fills missing bounds with the first and last calendar day of
// the month containing now.
func Resolve(from, to string, now time.Time) Window {
	w := Window{From: from, To: to}

	if w.From == "" {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		w.From = first.Format("2006-01-02")
	}

	if w.To == "" {
		// day zero of next month is the last day of this month
		last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
		w.To = last.Format("2006-01-02")
	}

	return w
}

type CategoryRow struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type UserRow struct {
	User  string  `json:"user"`
	Email string  `json:"email"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type StatusRow struct {
	Status string  `json:"status"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

// Grand totals are recomputed from the returned rows, never by a second
// aggregate query, so they always match the items arithmetically.

func CategoryGrandTotal(items []CategoryRow) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	return sum
}

func UserGrandTotal(items []UserRow) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	return sum
}

func StatusGrandTotal(items []StatusRow) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	return sum
}
