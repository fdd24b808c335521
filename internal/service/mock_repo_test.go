package service

import (
	"context"
	"testing"
	"time"

	"github.com/Eursukkul/outing-service/internal/lifecycle"
	"github.com/Eursukkul/outing-service/internal/models"
	"github.com/Eursukkul/outing-service/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// --- Mock OutingRepository ---

type mockOutingRepo struct {
	createFn            func(ctx context.Context, o *models.Outing) error
	findByIDFn          func(ctx context.Context, id uint) (*models.Outing, error)
	findAllFn           func(ctx context.Context) ([]models.Outing, error)
	findNonTerminalFn   func(ctx context.Context) ([]models.Outing, error)
	findStartingFn      func(ctx context.Context, from, to time.Time, states []lifecycle.State) ([]models.Outing, error)
	saveFn              func(ctx context.Context, o *models.Outing) error
	saveStatesFn        func(ctx context.Context, outings []*models.Outing) ([]*models.Outing, error)
	addParticipantFn    func(ctx context.Context, outingID, userID uint, at time.Time) error
	removeParticipantFn func(ctx context.Context, outingID, userID uint) error
	deleteFn            func(ctx context.Context, id uint) error
	// commitErr is returned by Transaction after fn succeeded.
	commitErr error

	transactions int
	saves        int
	batchSaves   int
	adds         int
	removes      int
	deletes      int
}

func (m *mockOutingRepo) Transaction(ctx context.Context, fn func(repo repository.OutingRepository) error) error {
	m.transactions++
	if err := fn(m); err != nil {
		return err
	}
	return m.commitErr
}

func (m *mockOutingRepo) Create(ctx context.Context, o *models.Outing) error {
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	o.ID = 1
	return nil
}

func (m *mockOutingRepo) FindByID(ctx context.Context, id uint) (*models.Outing, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockOutingRepo) FindByIDForUpdate(ctx context.Context, id uint) (*models.Outing, error) {
	return m.FindByID(ctx, id)
}

func (m *mockOutingRepo) FindAll(ctx context.Context) ([]models.Outing, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx)
	}
	return nil, nil
}

func (m *mockOutingRepo) FindNonTerminal(ctx context.Context) ([]models.Outing, error) {
	if m.findNonTerminalFn != nil {
		return m.findNonTerminalFn(ctx)
	}
	return nil, nil
}

func (m *mockOutingRepo) FindStartingBetween(ctx context.Context, from, to time.Time, states []lifecycle.State) ([]models.Outing, error) {
	if m.findStartingFn != nil {
		return m.findStartingFn(ctx, from, to, states)
	}
	return nil, nil
}

func (m *mockOutingRepo) Save(ctx context.Context, o *models.Outing) error {
	m.saves++
	if m.saveFn != nil {
		return m.saveFn(ctx, o)
	}
	o.Version++
	return nil
}

func (m *mockOutingRepo) SaveStates(ctx context.Context, outings []*models.Outing) ([]*models.Outing, error) {
	m.batchSaves++
	if m.saveStatesFn != nil {
		return m.saveStatesFn(ctx, outings)
	}
	return outings, nil
}

func (m *mockOutingRepo) AddParticipant(ctx context.Context, outingID, userID uint, at time.Time) error {
	m.adds++
	if m.addParticipantFn != nil {
		return m.addParticipantFn(ctx, outingID, userID, at)
	}
	return nil
}

func (m *mockOutingRepo) RemoveParticipant(ctx context.Context, outingID, userID uint) error {
	m.removes++
	if m.removeParticipantFn != nil {
		return m.removeParticipantFn(ctx, outingID, userID)
	}
	return nil
}

func (m *mockOutingRepo) Delete(ctx context.Context, id uint) error {
	m.deletes++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockOutingRepo) writes() int {
	return m.saves + m.batchSaves + m.adds + m.removes + m.deletes
}

// storeOf serves FindByID from a single outing, the way a locked read would.
func storeOf(o *models.Outing) *mockOutingRepo {
	return &mockOutingRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Outing, error) {
			if id != o.ID {
				return nil, repository.ErrNotFound
			}
			cp := *o
			cp.Participants = append([]models.Participation(nil), o.Participants...)
			return &cp, nil
		},
	}
}

// --- Mock Notifier ---

type mockNotifier struct {
	notifyFn func(ctx context.Context, msg models.OutingMessage) error
	sent     []models.OutingMessage
}

func (n *mockNotifier) Notify(ctx context.Context, msg models.OutingMessage) error {
	n.sent = append(n.sent, msg)
	if n.notifyFn != nil {
		return n.notifyFn(ctx, msg)
	}
	return nil
}

// --- Metrics ---

// transitionCount reads outing_state_transitions_total for one series from the
// default registry.
func transitionCount(t *testing.T, to lifecycle.State, origin string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "outing_state_transitions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["to"] == to.String() && labels["origin"] == origin {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
