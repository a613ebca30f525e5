package usecase

import (
	"errors"
	"testing"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(c *domain.Contract) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + c.ContractNo), nil
}

func (stubRenderer) ContentType() string { return "application/pdf" }

func TestContractQuery_ListVisibility(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.alice)
	f.create(t, f.alice)
	bobs := f.create(t, f.bob)

	tests := []struct {
		name  string
		actor *domain.Actor
		want  int
	}{
		{"owner sees own", f.alice, 2},
		{"other owner sees own", f.bob, 1},
		{"finance sees all", f.finance, 3},
		{"administrator sees all", f.admin, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.query.List(f.ctx, tt.actor, domain.ContractFilter{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total)
			assert.Len(t, res.Items, tt.want)
			assert.Equal(t, domain.DefaultContractLimit, res.Limit)
		})
	}

	t.Run("visible_to cannot be widened", func(t *testing.T) {
		spoof := f.alice.ID
		res, err := f.query.List(f.ctx, f.bob, domain.ContractFilter{VisibleTo: &spoof})
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, bobs.ID, res.Items[0].ID)
		assert.Equal(t, "bob", res.Items[0].CreatedByUsername)
	})
}

func TestContractQuery_ListFilters(t *testing.T) {
	f := newFixture(t)
	lease := f.create(t, f.alice)
	req := contractRequest("Supply agreement")
	req.Fields.PartyB = "Initech"
	supply, err := f.engine.Create(f.ctx, f.alice, req)
	require.NoError(t, err)
	_, err = f.engine.Submit(f.ctx, f.alice, supply.ID)
	require.NoError(t, err)

	res, err := f.query.List(f.ctx, f.admin, domain.ContractFilter{Keyword: "initech"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, supply.ID, res.Items[0].ID)

	draft := domain.StatusDraft
	res, err = f.query.List(f.ctx, f.admin, domain.ContractFilter{Status: &draft})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, lease.ID, res.Items[0].ID)

	res, err = f.query.List(f.ctx, f.admin, domain.ContractFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, supply.ID, res.Items[0].ID, "most recently updated first")

	res, err = f.query.List(f.ctx, f.admin, domain.ContractFilter{Skip: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Empty(t, res.Items)

	bogus := domain.ContractStatus("archived")
	_, err = f.query.List(f.ctx, f.admin, domain.ContractFilter{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.query.List(f.ctx, f.admin, domain.ContractFilter{Limit: 501})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.query.List(f.ctx, nil, domain.ContractFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestContractQuery_Get(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, f.alice)

	_, err := f.query.Get(f.ctx, f.bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.query.Get(f.ctx, f.alice, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.query.Get(f.ctx, f.finance, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestContractQuery_ContractLogs(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, f.alice)
	_, err := f.engine.Submit(f.ctx, f.alice, c.ID)
	require.NoError(t, err)

	_, err = f.query.ContractLogs(f.ctx, f.bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	logs, err := f.query.ContractLogs(f.ctx, f.alice, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.ActionCreate, logs[0].Action)
	assert.Equal(t, domain.ActionSubmit, logs[1].Action)
	assert.Equal(t, "alice", logs[1].Username)
}

func TestContractQuery_OperationFeed(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, f.alice)
	second := f.create(t, f.bob)
	_, err := f.engine.Submit(f.ctx, f.bob, second.ID)
	require.NoError(t, err)

	for _, actor := range []*domain.Actor{f.alice, f.finance} {
		_, err := f.query.OperationFeed(f.ctx, actor, domain.OperationLogFilter{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}

	feed, err := f.query.OperationFeed(f.ctx, f.admin, domain.OperationLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, feed.Total)
	assert.Equal(t, domain.DefaultLogLimit, feed.Limit)
	require.Len(t, feed.Items, 3)
	assert.Equal(t, domain.ActionSubmit, feed.Items[0].Action, "newest first")
	assert.Equal(t, "HT-001", feed.Items[0].ContractNo)

	feed, err = f.query.OperationFeed(f.ctx, f.admin, domain.OperationLogFilter{ContractID: &first.ID})
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, first.ID, feed.Items[0].ContractID)

	feed, err = f.query.OperationFeed(f.ctx, f.admin, domain.OperationLogFilter{ActorID: &f.bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Total)

	_, err = f.query.OperationFeed(f.ctx, f.admin, domain.OperationLogFilter{Limit: 201})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestContractQuery_ExportDocument(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, f.alice)

	query := NewContractQueryService(f.store, stubRenderer{})
	data, contentType, contract, err := query.ExportDocument(f.ctx, f.alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "%PDF-HT-001", string(data))
	assert.Equal(t, c.ID, contract.ID)

	_, _, _, err = query.ExportDocument(f.ctx, f.bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	broken := NewContractQueryService(f.store, stubRenderer{err: errors.New("font missing")})
	_, _, _, err = broken.ExportDocument(f.ctx, f.alice, c.ID)
	assert.Error(t, err)
	assert.Empty(t, domain.KindOf(err))
}
