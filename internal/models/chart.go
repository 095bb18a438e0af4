package models

// ChartMode selects which grade distribution the backend renders.
type ChartMode string

const (
	ChartByStudent ChartMode = "by_student"
	ChartBySubject ChartMode = "by_subject"
)

// ChartQuery is derived, never stored: it describes one chart image request.
// CacheToken changes only on explicit refresh so the image fetch bypasses
// any intermediate cache.
type ChartQuery struct {
	Mode       ChartMode
	StudentID  int64
	Subject    string
	CacheToken int64
}

// Resolvable reports whether the query identifies a chart. An unresolvable
// query renders the empty state instead of issuing a request.
func (q ChartQuery) Resolvable() bool {
	switch q.Mode {
	case ChartByStudent:
		return q.StudentID != 0
	case ChartBySubject:
		return q.Subject != ""
	}
	return false
}
