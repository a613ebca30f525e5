package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
	"github.com/contractflow/contractflow/internal/usecase"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contractCols = []string{"id", "title", "contract_no", "party_a", "party_b", "amount",
		"sign_date", "expire_date", "status", "note", "created_by", "created_at", "updated_at"}
	attachmentCols = []string{"id", "contract_id", "file_name", "storage_key", "file_size", "created_at"}
)

func newMockStore(t *testing.T) (*PostgresContractStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresContractStore(db), mock
}

func contractRow(id, status string, now time.Time, withUsername bool) *sqlmock.Rows {
	cols := contractCols
	values := []driver.Value{id, "Lease", "HT-001", "Acme", "Globex", "1000.00",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), nil, status, "note", "owner-1", now, now}
	if withUsername {
		cols = append(append([]string{}, contractCols...), "username")
		values = append(values, "alice")
	}
	return sqlmock.NewRows(cols).AddRow(values...)
}

func TestGetContract(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contracts c LEFT JOIN actors u ON u.id = c.created_by WHERE c.id = $1")).
		WithArgs("c-1").
		WillReturnRows(contractRow("c-1", "draft", now, true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM contract_attachments WHERE contract_id = $1")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(attachmentCols).AddRow("a-1", "c-1", "scan.pdf", "contracts/c-1/x_scan.pdf", int64(42), now))

	contract, err := store.GetContract(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, "Lease", contract.Title)
	assert.True(t, decimal.RequireFromString("1000").Equal(contract.Amount))
	assert.Equal(t, domain.StatusDraft, contract.Status)
	assert.Equal(t, "alice", contract.CreatedByUsername)
	require.NotNil(t, contract.SignDate)
	assert.Equal(t, "2025-03-01", contract.SignDate.Format("2006-01-02"))
	assert.Nil(t, contract.ExpireDate)
	require.Len(t, contract.Attachments, 1)
	assert.Equal(t, "contracts/c-1/x_scan.pdf", contract.Attachments[0].StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContract_NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "no rows", err: sql.ErrNoRows},
		{name: "malformed id", err: &pq.Error{Code: codeInvalidText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectQuery("FROM contracts c").WillReturnError(tt.err)

			_, err := store.GetContract(context.Background(), "nope")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListContracts_FiltersAndCount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	owner := "owner-1"
	status := domain.StatusDraft
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	filter := domain.ContractFilter{
		VisibleTo:    &owner,
		Keyword:      "50%_off",
		Status:       &status,
		SignDateFrom: &from,
		Skip:         20,
		Limit:        10,
	}

	where := "WHERE c.created_by = $1 AND (c.title ILIKE $2 OR c.contract_no ILIKE $2 OR c.party_a ILIKE $2 OR c.party_b ILIKE $2) AND c.status = $3 AND c.sign_date >= $4"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contracts c " + where)).
		WithArgs(owner, `%50\%\_off%`, "draft", "2025-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta(where + " ORDER BY c.updated_at DESC, c.id LIMIT $5 OFFSET $6")).
		WithArgs(owner, `%50\%\_off%`, "draft", "2025-01-01", 10, 20).
		WillReturnRows(contractRow("c-21", "draft", now, true))

	items, total, err := store.ListContracts(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 21, total)
	require.Len(t, items, 1)
	assert.Equal(t, "c-21", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContracts_NoFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contracts c")).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY c.updated_at DESC, c.id LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, contractCols...), "username")))

	items, total, err := store.ListContracts(context.Background(), domain.ContractFilter{Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_CommitsStatusAndLogTogether(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1 FOR UPDATE")).
		WithArgs("c-1").
		WillReturnRows(contractRow("c-1", "pending_finance", now, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contracts SET")).
		WithArgs("c-1", "Lease", "HT-001", "Acme", "Globex", sqlmock.AnyArg(), "2025-03-01", nil, "finance_approved", "note", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contract_operation_logs")).
		WithArgs(sqlmock.AnyArg(), "c-1", "fin-1", "approve_finance", "pending_finance", "finance_approved", "ok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.ContractTx) error {
		c, err := tx.LockContract(ctx, "c-1")
		if err != nil {
			return err
		}
		from, to, err := c.Transition(domain.Transitions[domain.ActionApproveFinance])
		if err != nil {
			return err
		}
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		return tx.AppendLog(ctx, domain.NewOperationLog(c.ID, "fin-1", domain.ActionApproveFinance, &from, to, "ok"))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackWhenLogFails(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(contractRow("c-1", "draft", now, false))
	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contract_operation_logs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.ContractTx) error {
		c, err := tx.LockContract(ctx, "c-1")
		if err != nil {
			return err
		}
		from, to, err := c.Transition(domain.Transitions[domain.ActionSubmit])
		if err != nil {
			return err
		}
		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		return tx.AppendLog(ctx, domain.NewOperationLog(c.ID, "owner-1", domain.ActionSubmit, &from, to, ""))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_LockedContractMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.ContractTx) error {
		_, err := tx.LockContract(ctx, "gone")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteContract_CascadesExplicitly(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT storage_key FROM contract_attachments WHERE contract_id = $1")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("k1").AddRow("k2"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contract_operation_logs WHERE contract_id = $1")).
		WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contract_attachments WHERE contract_id = $1")).
		WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contracts WHERE id = $1")).
		WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var keys []string
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.ContractTx) error {
		var err error
		keys, err = tx.DeleteContract(ctx, "c-1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOperationLogs_JoinsContractNumber(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	contractID := "c-1"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contract_operation_logs l WHERE l.contract_id::text = $1")).
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("JOIN contracts c ON c.id = l.contract_id")).
		WithArgs(contractID, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "contract_id", "actor_id", "action", "from_status", "to_status", "remark", "created_at", "username", "contract_no"}).
			AddRow("l-1", contractID, "u-1", "create", nil, "draft", nil, now, "alice", "HT-001"))

	items, total, err := store.ListOperationLogs(context.Background(), domain.OperationLogFilter{ContractID: &contractID, Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].FromStatus)
	require.NotNil(t, items[0].ToStatus)
	assert.Equal(t, domain.StatusDraft, *items[0].ToStatus)
	assert.Nil(t, items[0].Remark)
	assert.Equal(t, "HT-001", items[0].ContractNo)
	assert.Equal(t, "alice", items[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineSubmit_OnPostgresStore(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	owner := &domain.Actor{ID: "owner-1", Username: "alice", Role: domain.RoleNormal}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("c-1").WillReturnRows(contractRow("c-1", "draft", now, false))
	mock.ExpectExec("UPDATE contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contract_operation_logs").
		WithArgs(sqlmock.AnyArg(), "c-1", "owner-1", "submit", "draft", "pending_finance", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM contracts c LEFT JOIN actors").WillReturnRows(contractRow("c-1", "pending_finance", now, true))
	mock.ExpectQuery("FROM contract_attachments").WillReturnRows(sqlmock.NewRows(attachmentCols))

	engine := usecase.NewContractEngine(store, nil, nil, nil)
	contract, err := engine.Submit(context.Background(), owner, "c-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingFinance, contract.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineSubmit_WrongStateRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	owner := &domain.Actor{ID: "owner-1", Role: domain.RoleNormal}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(contractRow("c-1", "pending_finance", time.Now(), false))
	mock.ExpectRollback()

	engine := usecase.NewContractEngine(store, nil, nil, nil)
	_, err := engine.Submit(context.Background(), owner, "c-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}
