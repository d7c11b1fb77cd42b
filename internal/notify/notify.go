package notify

// Priority indicates how a notification should be surfaced
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notifier delivers user-facing notifications. Implementations must be safe
// for use from the trading loop and HTTP handlers concurrently.
type Notifier interface {
	Send(title, message string, priority Priority, accountID string) error
}

// Nop is a no-op notifier used when no channel is configured
type Nop struct{}

// Send discards the notification
func (Nop) Send(title, message string, priority Priority, accountID string) error {
	return nil
}
