package domain

// BackendStatus is the status vocabulary used on the wire by the support API.
type BackendStatus string

const (
	BackendStatusOpen       BackendStatus = "open"
	BackendStatusInProgress BackendStatus = "in_progress"
	BackendStatusWorkingOn  BackendStatus = "working_on"
	BackendStatusResolved   BackendStatus = "resolved"
	BackendStatusClosed     BackendStatus = "closed"
)

// DisplayStatus is the human-facing status vocabulary shown in the console.
type DisplayStatus string

const (
	DisplayStatusPending    DisplayStatus = "Pending"
	DisplayStatusInProgress DisplayStatus = "In Progress"
	DisplayStatusWorkingOn  DisplayStatus = "Working On"
	DisplayStatusResolved   DisplayStatus = "Resolved"
	DisplayStatusClosed     DisplayStatus = "Closed"
)

// statusLabels is a total bijection between the two vocabularies.
var statusLabels = map[BackendStatus]DisplayStatus{
	BackendStatusOpen:       DisplayStatusPending,
	BackendStatusInProgress: DisplayStatusInProgress,
	BackendStatusWorkingOn:  DisplayStatusWorkingOn,
	BackendStatusResolved:   DisplayStatusResolved,
	BackendStatusClosed:     DisplayStatusClosed,
}

// DisplayFor maps a backend status code to its display label. Unrecognized
// codes pass through unchanged so a newer backend vocabulary never breaks
// rendering.
func DisplayFor(code BackendStatus) DisplayStatus {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return DisplayStatus(code)
}

// BackendFor maps a display label back to its backend code. The second
// return value reports whether the label belongs to the known vocabulary;
// callers must not submit a status update when it is false.
func BackendFor(label DisplayStatus) (BackendStatus, bool) {
	for code, l := range statusLabels {
		if l == label {
			return code, true
		}
	}
	return "", false
}

// Terminal reports whether the status admits no further assignment or
// board transitions.
func (s DisplayStatus) Terminal() bool {
	return s == DisplayStatusResolved || s == DisplayStatusClosed
}

// KnownBackendStatuses returns the closed backend vocabulary in lifecycle
// order.
func KnownBackendStatuses() []BackendStatus {
	return []BackendStatus{
		BackendStatusOpen,
		BackendStatusInProgress,
		BackendStatusWorkingOn,
		BackendStatusResolved,
		BackendStatusClosed,
	}
}
