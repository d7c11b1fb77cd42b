package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/notify"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *incidents.Service) {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error"})
	incidentSvc := incidents.NewService(incidents.NewRepository(db.Conn(), log), notify.Nop{}, log)
	return NewService(NewRepository(db.Conn(), log), incidentSvc, log), incidentSvc
}

func TestService_CreateDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.Create(Account{
		ID:             "acct-1",
		Name:           "Defaults",
		InitialCapital: 5000,
		Active:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, EnvironmentSimulation, acct.Environment)
	assert.Equal(t, AutomationManual, acct.Automation)
	assert.Equal(t, ExchangeTestnet, acct.ExchangeEnvironment)
	assert.Equal(t, DefaultRiskSettings(), acct.Risk)
}

func TestService_CreateJournalsModeIncident(t *testing.T) {
	svc, incidentSvc := newTestService(t)

	_, err := svc.Create(Account{ID: "acct-1", Name: "Test", InitialCapital: 5000, Active: true})
	require.NoError(t, err)

	items, err := incidentSvc.List(incidents.ListFilter{
		AccountID: "acct-1",
		Type:      incidents.TypeModeChange,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, incidents.SeverityLow, items[0].Severity)
}

func TestService_SetEnvironmentJournalsChange(t *testing.T) {
	svc, incidentSvc := newTestService(t)

	_, err := svc.Create(Account{ID: "acct-1", Name: "Test", InitialCapital: 5000, Active: true})
	require.NoError(t, err)

	require.NoError(t, svc.SetEnvironment("acct-1", EnvironmentLive))

	acct, err := svc.Get("acct-1")
	require.NoError(t, err)
	assert.Equal(t, EnvironmentLive, acct.Environment)

	items, err := incidentSvc.List(incidents.ListFilter{
		AccountID: "acct-1",
		Type:      incidents.TypeEnvironmentChange,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, incidents.SeverityMedium, items[0].Severity)

	// Setting the same environment again is a no-op, nothing new journaled.
	require.NoError(t, svc.SetEnvironment("acct-1", EnvironmentLive))
	items, err = incidentSvc.List(incidents.ListFilter{
		AccountID: "acct-1",
		Type:      incidents.TypeEnvironmentChange,
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestService_SetAutomation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(Account{ID: "acct-1", Name: "Test", InitialCapital: 5000, Active: true})
	require.NoError(t, err)

	require.NoError(t, svc.SetAutomation("acct-1", AutomationFullyAutomated))

	acct, err := svc.Get("acct-1")
	require.NoError(t, err)
	assert.Equal(t, AutomationFullyAutomated, acct.Automation)
}

func TestService_GetUnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_PeakEquityTracksHighWaterMark(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.Create(Account{ID: "acct-1", Name: "Test", InitialCapital: 5000, Active: true})
	require.NoError(t, err)

	// No equity recorded yet: the peak defaults to initial capital.
	peak, err := svc.PeakEquity(acct)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, peak)

	require.NoError(t, svc.RecordEquity("acct-1", 6200))
	require.NoError(t, svc.RecordEquity("acct-1", 5800)) // below peak, ignored

	peak, err = svc.PeakEquity(acct)
	require.NoError(t, err)
	assert.Equal(t, 6200.0, peak)
}
