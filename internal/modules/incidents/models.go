package incidents

import "time"

// Severity classifies how urgent an incident is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is one of the known values
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Notifiable reports whether incidents of this severity should page a human
func (s Severity) Notifiable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Incident types journaled by the system
const (
	TypeEnvironmentChange     = "ENVIRONMENT_CHANGE"
	TypeAutomationChange      = "AUTOMATION_CHANGE"
	TypeModeChange            = "MODE_CHANGE"
	TypeSettingsChange        = "SETTINGS_CHANGE"
	TypeAutoPause             = "AUTO_PAUSE"
	TypeRiskRejection         = "RISK_REJECTION"
	TypeExecutionError        = "EXECUTION_ERROR"
	TypeExchangeNotConfigured = "EXCHANGE_NOT_CONFIGURED"
	TypeSystemError           = "SYSTEM_ERROR"
)

// Incident is one append-only audit record. AccountID is nil for
// system-wide incidents.
type Incident struct {
	ID        int64                  `json:"id"`
	AccountID *string                `json:"account_id,omitempty"`
	Type      string                 `json:"type"`
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
