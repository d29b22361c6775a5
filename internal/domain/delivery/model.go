package delivery

// Task is one pending send of an issue to a recipient, joined with the issue content.
type Task struct {
	IssueID        string
	RecipientEmail string
	Title          string
	TextContent    string
	HTMLContent    string
}

// Outcome is the result of one worker iteration.
type Outcome int

const (
	OutcomeEmptyQueue Outcome = iota
	OutcomeTaskCompleted
	OutcomeTaskFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmptyQueue:
		return "empty"
	case OutcomeTaskCompleted:
		return "completed"
	case OutcomeTaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}
