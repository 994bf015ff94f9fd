// Package timefmt renders timestamps for display: relative wording when
// the moment is today, an absolute date otherwise.
package timefmt

import (
	"fmt"
	"time"
)

// Display formats ts relative to now. Both are compared in now's location.
func Display(ts, now time.Time) string {
	ts = ts.In(now.Location())

	if !sameDay(ts, now) {
		return ts.Format("Jan 2, 2006")
	}

	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
