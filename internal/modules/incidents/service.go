package incidents

import (
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/notify"
)

// Service journals incidents and pushes notifications for severe ones.
// Validation rejections and other low-severity records never notify.
type Service struct {
	repo     *Repository
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewService creates a new incident service
func NewService(repo *Repository, notifier notify.Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log.With().Str("service", "incidents").Logger(),
	}
}

// Record journals an account-scoped incident
func (s *Service) Record(accountID, incidentType string, severity Severity, message string, details map[string]interface{}) {
	s.record(&accountID, incidentType, severity, message, details)
}

// RecordSystem journals a system-wide incident with no account attached
func (s *Service) RecordSystem(incidentType string, severity Severity, message string, details map[string]interface{}) {
	s.record(nil, incidentType, severity, message, details)
}

// List retrieves incidents matching the filter, most recent first
func (s *Service) List(filter ListFilter) ([]Incident, error) {
	return s.repo.List(filter)
}

func (s *Service) record(accountID *string, incidentType string, severity Severity, message string, details map[string]interface{}) {
	event := s.log.With().
		Str("type", incidentType).
		Str("severity", string(severity)).
		Logger()
	if accountID != nil {
		event = event.With().Str("account", *accountID).Logger()
	}

	switch severity {
	case SeverityCritical, SeverityHigh:
		event.Error().Msg(message)
	case SeverityMedium:
		event.Warn().Msg(message)
	default:
		event.Info().Msg(message)
	}

	incident := Incident{
		AccountID: accountID,
		Type:      incidentType,
		Severity:  severity,
		Message:   message,
		Details:   details,
	}

	if _, err := s.repo.Create(incident); err != nil {
		// The journal must never take the trading path down with it.
		s.log.Error().Err(err).Str("type", incidentType).Msg("Failed to journal incident")
		return
	}

	if severity.Notifiable() {
		priority := notify.PriorityHigh
		if severity == SeverityCritical {
			priority = notify.PriorityUrgent
		}

		account := ""
		if accountID != nil {
			account = *accountID
		}

		if err := s.notifier.Send(incidentType, message, priority, account); err != nil {
			s.log.Warn().Err(err).Msg("Failed to send incident notification")
		}
	}
}
