package domain

// EventType represents the type of a session event pushed to subscribers.
type EventType string

const (
	EventTypeMessageAppended EventType = "message_appended"
	EventTypeSessionClosed   EventType = "session_closed"
	EventTypeSessionRenamed  EventType = "session_renamed"
)

// Action names a chat operation checked by the access policy.
type Action string

const (
	ActionHistory Action = "history"
	ActionSend    Action = "send"
)

// Decision is the outcome of a policy evaluation.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)
