package media

import "fmt"

// Status is a user's tracking state for a piece of media. Values match what
// external list services round-trip through imports.
type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusInProgress Status = "In progress"
	StatusRepeating  Status = "Repeating"
	StatusPlanning   Status = "Planning"
	StatusPaused     Status = "Paused"
	StatusDropped    Status = "Dropped"
)

var Statuses = []Status{
	StatusCompleted, StatusInProgress, StatusRepeating,
	StatusPlanning, StatusPaused, StatusDropped,
}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) String() string { return string(s) }

// Active reports whether the media is being consumed right now.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusRepeating
}
