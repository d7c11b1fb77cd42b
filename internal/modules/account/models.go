package account

import (
	"fmt"
	"strings"
	"time"
)

// Environment selects whether execution mutates simulated state or a real exchange
type Environment string

const (
	EnvironmentSimulation Environment = "simulation"
	EnvironmentLive       Environment = "live"
)

// IsValid checks if the environment is one of the known values
func (e Environment) IsValid() bool {
	return e == EnvironmentSimulation || e == EnvironmentLive
}

// EnvironmentFromString creates an Environment from a string (case-insensitive)
func EnvironmentFromString(value string) (Environment, error) {
	e := Environment(strings.ToLower(strings.TrimSpace(value)))
	if !e.IsValid() {
		return "", fmt.Errorf("invalid environment: %q", value)
	}
	return e, nil
}

// Automation selects how much human gatekeeping trade execution requires
type Automation string

const (
	AutomationManual         Automation = "manual"
	AutomationSemiAutomated  Automation = "semi_automated"
	AutomationFullyAutomated Automation = "fully_automated"
)

// IsValid checks if the automation level is one of the known values
func (a Automation) IsValid() bool {
	switch a {
	case AutomationManual, AutomationSemiAutomated, AutomationFullyAutomated:
		return true
	}
	return false
}

// AutomationFromString creates an Automation from a string (case-insensitive)
func AutomationFromString(value string) (Automation, error) {
	a := Automation(strings.ToLower(strings.TrimSpace(value)))
	if !a.IsValid() {
		return "", fmt.Errorf("invalid automation level: %q", value)
	}
	return a, nil
}

// ExchangeEnvironment selects the exchange endpoint for live execution
type ExchangeEnvironment string

const (
	ExchangeTestnet ExchangeEnvironment = "testnet"
	ExchangeMainnet ExchangeEnvironment = "mainnet"
)

// RiskSettings holds per-account pre-trade limits and auto-pause thresholds.
// Percentages are expressed as whole numbers (25 means 25%).
type RiskSettings struct {
	MaxPositionSizePct         float64 `json:"max_position_size_pct"`
	MaxDailyLossPct            float64 `json:"max_daily_loss_pct"`
	MaxDailyTrades             int     `json:"max_daily_trades"`
	MaxOpenPositions           int     `json:"max_open_positions"`
	MinCashReservePct          float64 `json:"min_cash_reserve_pct"`
	MaxDrawdownPct             float64 `json:"max_drawdown_pct"`
	AutoPauseConsecutiveLosses int     `json:"auto_pause_consecutive_losses"`
	AutoPauseWinRateThreshold  float64 `json:"auto_pause_win_rate_threshold"`
}

// DefaultRiskSettings returns the limits applied to new accounts
func DefaultRiskSettings() RiskSettings {
	return RiskSettings{
		MaxPositionSizePct:         25,
		MaxDailyLossPct:            5,
		MaxDailyTrades:             20,
		MaxOpenPositions:           5,
		MinCashReservePct:          10,
		MaxDrawdownPct:             20,
		AutoPauseConsecutiveLosses: 5,
		AutoPauseWinRateThreshold:  40,
	}
}

// Validate checks the settings are internally sane
func (r *RiskSettings) Validate() error {
	if r.MaxPositionSizePct <= 0 || r.MaxPositionSizePct > 100 {
		return fmt.Errorf("max_position_size_pct must be in (0, 100]")
	}
	if r.MaxDailyLossPct <= 0 || r.MaxDailyLossPct > 100 {
		return fmt.Errorf("max_daily_loss_pct must be in (0, 100]")
	}
	if r.MaxDailyTrades <= 0 {
		return fmt.Errorf("max_daily_trades must be positive")
	}
	if r.MaxOpenPositions <= 0 {
		return fmt.Errorf("max_open_positions must be positive")
	}
	if r.MinCashReservePct < 0 || r.MinCashReservePct >= 100 {
		return fmt.Errorf("min_cash_reserve_pct must be in [0, 100)")
	}
	if r.MaxDrawdownPct <= 0 || r.MaxDrawdownPct > 100 {
		return fmt.Errorf("max_drawdown_pct must be in (0, 100]")
	}
	if r.AutoPauseConsecutiveLosses <= 0 {
		return fmt.Errorf("auto_pause_consecutive_losses must be positive")
	}
	if r.AutoPauseWinRateThreshold < 0 || r.AutoPauseWinRateThreshold > 100 {
		return fmt.Errorf("auto_pause_win_rate_threshold must be in [0, 100]")
	}
	return nil
}

// Account is one independently capitalized trading identity
type Account struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	InitialCapital      float64             `json:"initial_capital"`
	Environment         Environment         `json:"environment"`
	Automation          Automation          `json:"automation"`
	ExchangeEnvironment ExchangeEnvironment `json:"exchange_environment"`
	FeeRate             float64             `json:"fee_rate"`
	Risk                RiskSettings        `json:"risk"`
	Active              bool                `json:"active"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// Validate checks the account is well-formed
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if a.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive")
	}
	if !a.Environment.IsValid() {
		return fmt.Errorf("invalid environment: %q", a.Environment)
	}
	if !a.Automation.IsValid() {
		return fmt.Errorf("invalid automation: %q", a.Automation)
	}
	if a.FeeRate < 0 || a.FeeRate >= 1 {
		return fmt.Errorf("fee rate must be in [0, 1)")
	}
	return a.Risk.Validate()
}
