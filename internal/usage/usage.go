package usage

import (
	"sort"
	"time"
)

// DateLayout is the ISO calendar date used as the document key.
const DateLayout = "2006-01-02"

// Counter maps an application title to whole seconds spent in it.
type Counter map[string]int64

// Document is the full persisted state, keyed by date.
type Document map[string]Counter

// AppTotal is one row of a sorted counter.
type AppTotal struct {
	Application string `json:"application"`
	Seconds     int64  `json:"seconds"`
}

// DateKey formats t as a document key in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Add credits seconds to app. Empty titles and non-positive amounts are ignored.
func (c Counter) Add(app string, seconds int64) {
	if app == "" || seconds <= 0 {
		return
	}
	c[app] += seconds
}

// Clone returns an independent copy.
func (c Counter) Clone() Counter {
	out := make(Counter, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total sums every application.
func (c Counter) Total() int64 {
	var total int64
	for _, v := range c {
		total += v
	}
	return total
}

// Merge adds every entry of other into c.
func (c Counter) Merge(other Counter) {
	for k, v := range other {
		c.Add(k, v)
	}
}

// Sorted returns the entries by descending time, ties broken by title.
func (c Counter) Sorted() []AppTotal {
	out := make([]AppTotal, 0, len(c))
	for k, v := range c {
		out = append(out, AppTotal{Application: k, Seconds: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Application < out[j].Application
	})
	return out
}

// sanitize drops entries a well-formed document never holds.
func (c Counter) sanitize() Counter {
	out := make(Counter, len(c))
	for k, v := range c {
		if k != "" && v >= 0 {
			out[k] = v
		}
	}
	return out
}

// Range merges the counters of every date in [from, to).
func (d Document) Range(from, to time.Time) Counter {
	out := make(Counter)
	fromKey, toKey := DateKey(from), DateKey(to)
	for date, c := range d {
		// ISO dates order lexically
		if date >= fromKey && date < toKey {
			out.Merge(c)
		}
	}
	return out
}
