package account

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
)

// ErrNotFound is returned when no account exists for an id.
var ErrNotFound = errors.New("account not found")

// Service owns administrative account operations. Mode transitions are
// explicit operations here, orthogonal to trade processing, and every
// configuration change is journaled as an incident.
type Service struct {
	repo      *Repository
	incidents *incidents.Service
	log       zerolog.Logger
}

// NewService creates a new account service
func NewService(repo *Repository, incidentSvc *incidents.Service, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		incidents: incidentSvc,
		log:       log.With().Str("service", "account").Logger(),
	}
}

// Get retrieves an account by id, failing when absent
func (s *Service) Get(id string) (*Account, error) {
	acct, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return acct, nil
}

// List retrieves every account
func (s *Service) List() ([]Account, error) {
	return s.repo.GetAll()
}

// ListActive retrieves accounts participating in the trading loop
func (s *Service) ListActive() ([]Account, error) {
	return s.repo.GetActive()
}

// Create registers a new account with defaulted risk settings where unset
func (s *Service) Create(acct Account) (*Account, error) {
	if acct.Environment == "" {
		acct.Environment = EnvironmentSimulation
	}
	if acct.Automation == "" {
		acct.Automation = AutomationManual
	}
	if acct.ExchangeEnvironment == "" {
		acct.ExchangeEnvironment = ExchangeTestnet
	}
	if acct.Risk == (RiskSettings{}) {
		acct.Risk = DefaultRiskSettings()
	}

	created, err := s.repo.Create(acct)
	if err != nil {
		return nil, err
	}

	s.incidents.Record(created.ID, incidents.TypeModeChange, incidents.SeverityLow,
		fmt.Sprintf("account created in %s/%s mode", created.Environment, created.Automation),
		map[string]interface{}{
			"environment": string(created.Environment),
			"automation":  string(created.Automation),
		})

	return created, nil
}

// SetEnvironment switches the execution environment axis
func (s *Service) SetEnvironment(id string, env Environment) error {
	acct, err := s.Get(id)
	if err != nil {
		return err
	}

	if acct.Environment == env {
		return nil
	}

	if err := s.repo.SetEnvironment(id, env); err != nil {
		return err
	}

	s.incidents.Record(id, incidents.TypeEnvironmentChange, incidents.SeverityMedium,
		fmt.Sprintf("environment changed from %s to %s", acct.Environment, env),
		map[string]interface{}{
			"from": string(acct.Environment),
			"to":   string(env),
		})

	return nil
}

// SetAutomation switches the automation axis
func (s *Service) SetAutomation(id string, automation Automation) error {
	acct, err := s.Get(id)
	if err != nil {
		return err
	}

	if acct.Automation == automation {
		return nil
	}

	if err := s.repo.SetAutomation(id, automation); err != nil {
		return err
	}

	s.incidents.Record(id, incidents.TypeAutomationChange, incidents.SeverityMedium,
		fmt.Sprintf("automation changed from %s to %s", acct.Automation, automation),
		map[string]interface{}{
			"from": string(acct.Automation),
			"to":   string(automation),
		})

	return nil
}

// UpdateRiskSettings replaces the account's risk limits
func (s *Service) UpdateRiskSettings(id string, settings RiskSettings) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	if err := s.repo.UpdateRiskSettings(id, settings); err != nil {
		return err
	}

	s.incidents.Record(id, incidents.TypeSettingsChange, incidents.SeverityLow,
		"risk settings updated", map[string]interface{}{
			"max_position_size_pct": settings.MaxPositionSizePct,
			"max_daily_loss_pct":    settings.MaxDailyLossPct,
			"max_daily_trades":      settings.MaxDailyTrades,
			"max_open_positions":    settings.MaxOpenPositions,
			"min_cash_reserve_pct":  settings.MinCashReservePct,
			"max_drawdown_pct":      settings.MaxDrawdownPct,
		})

	return nil
}

// PeakEquity returns the account's highest recorded total value
func (s *Service) PeakEquity(acct *Account) (float64, error) {
	return s.repo.GetPeakEquity(acct.ID, acct.InitialCapital)
}

// RecordEquity feeds the peak-equity tracker with a fresh total value
func (s *Service) RecordEquity(id string, totalValue float64) error {
	return s.repo.RecordEquity(id, totalValue)
}
