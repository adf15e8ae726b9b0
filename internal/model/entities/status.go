package entities

// Status is the lifecycle state of a service order.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusInterrupted Status = "INTERRUPTED"
	StatusCompleted   Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusInterrupted, StatusCompleted:
		return true
	}
	return false
}

// Label returns the localized value stored by the backend.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendente"
	case StatusInProgress:
		return "Em Andamento"
	case StatusInterrupted:
		return "Interrompida"
	case StatusCompleted:
		return "Concluída"
	}
	return ""
}

// ParseStatus accepts both the localized backend labels and the canonical names.
func ParseStatus(s string) (Status, bool) {
	switch foldKey(s) {
	case "pendente", "pending":
		return StatusPending, true
	case "em andamento", "andamento", "in progress", "inprogress", "running":
		return StatusInProgress, true
	case "interrompida", "interrupted", "paused":
		return StatusInterrupted, true
	case "concluida", "completed", "done":
		return StatusCompleted, true
	}
	return "", false
}

// Started reports whether the order has left the pending state.
func (s Status) Started() bool {
	return s == StatusInProgress || s == StatusInterrupted || s == StatusCompleted
}
