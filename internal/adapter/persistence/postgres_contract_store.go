package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
)

const contractColumns = `c.id, c.title, c.contract_no, c.party_a, c.party_b, c.amount,
	c.sign_date, c.expire_date, c.status, c.note, c.created_by, c.created_at, c.updated_at`

const logColumns = `l.id, l.contract_id, l.actor_id, l.action, l.from_status, l.to_status, l.remark, l.created_at`

// PostgresContractStore implements ContractStore using PostgreSQL
type PostgresContractStore struct {
	db *sql.DB
}

// NewPostgresContractStore creates a new PostgreSQL contract store
func NewPostgresContractStore(db *sql.DB) *PostgresContractStore {
	return &PostgresContractStore{db: db}
}

var _ ports.ContractStore = (*PostgresContractStore)(nil)

// WithinTx runs fn inside one database transaction. Row locks taken by
// LockContract are held until fn returns.
func (s *PostgresContractStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.ContractTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, &postgresTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return translate(err, "commit transaction", "contract not found")
	}
	return nil
}

// GetContract retrieves a contract with its creator name and attachments
func (s *PostgresContractStore) GetContract(ctx context.Context, id string) (*domain.Contract, error) {
	query := `
		SELECT ` + contractColumns + `, COALESCE(u.username, '')
		FROM contracts c
		LEFT JOIN actors u ON u.id = c.created_by
		WHERE c.id = $1
	`

	contract, err := scanContract(s.db.QueryRowContext(ctx, query, id), true)
	if err != nil {
		return nil, translate(err, "find contract", "contract not found")
	}

	attachments, err := s.listAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	contract.Attachments = attachments
	return contract, nil
}

// ListContracts returns one page of contracts matching filter and the total
// count under the same conditions
func (s *PostgresContractStore) ListContracts(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, int, error) {
	where, args := contractConditions(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM contracts c` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	query := `
		SELECT ` + contractColumns + `, COALESCE(u.username, '')
		FROM contracts c
		LEFT JOIN actors u ON u.id = c.created_by` + where + `
		ORDER BY c.updated_at DESC, c.id
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*domain.Contract
	for rows.Next() {
		contract, err := scanContract(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate contracts: %w", err)
	}

	return contracts, total, nil
}

// contractConditions builds the WHERE clause. Visibility comes first.
func contractConditions(filter domain.ContractFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.VisibleTo != nil {
		add("c.created_by = ?", *filter.VisibleTo)
	}
	if filter.Keyword != "" {
		add("(c.title ILIKE ? OR c.contract_no ILIKE ? OR c.party_a ILIKE ? OR c.party_b ILIKE ?)", "%"+escapeLike(filter.Keyword)+"%")
	}
	if filter.Status != nil {
		add("c.status = ?", string(*filter.Status))
	}
	if filter.SignDateFrom != nil {
		add("c.sign_date >= ?", filter.SignDateFrom.Format("2006-01-02"))
	}
	if filter.SignDateTo != nil {
		add("c.sign_date <= ?", filter.SignDateTo.Format("2006-01-02"))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetAttachment retrieves attachment metadata by its ID
func (s *PostgresContractStore) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	query := `
		SELECT id, contract_id, file_name, storage_key, file_size, created_at
		FROM contract_attachments
		WHERE id = $1
	`

	var a domain.Attachment
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.ContractID,
		&a.FileName,
		&a.StorageKey,
		&a.FileSize,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, translate(err, "find attachment", "attachment not found")
	}
	return &a, nil
}

func (s *PostgresContractStore) listAttachments(ctx context.Context, contractID string) ([]domain.Attachment, error) {
	query := `
		SELECT id, contract_id, file_name, storage_key, file_size, created_at
		FROM contract_attachments
		WHERE contract_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.ContractID, &a.FileName, &a.StorageKey, &a.FileSize, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// ListContractLogs returns the audit trail of one contract, oldest first
func (s *PostgresContractStore) ListContractLogs(ctx context.Context, contractID string) ([]*domain.OperationLogEntry, error) {
	query := `
		SELECT ` + logColumns + `, COALESCE(u.username, ''), ''
		FROM contract_operation_logs l
		LEFT JOIN actors u ON u.id = l.actor_id
		WHERE l.contract_id = $1
		ORDER BY l.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, translate(err, "list contract logs", "contract not found")
	}
	defer rows.Close()

	return scanLogEntries(rows)
}

// ListOperationLogs returns the global feed, newest first, and its total
func (s *PostgresContractStore) ListOperationLogs(ctx context.Context, filter domain.OperationLogFilter) ([]*domain.OperationLogEntry, int, error) {
	var conditions []string
	var args []interface{}
	if filter.ContractID != nil {
		args = append(args, *filter.ContractID)
		conditions = append(conditions, fmt.Sprintf("l.contract_id::text = $%d", len(args)))
	}
	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("l.actor_id::text = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contract_operation_logs l`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count operation logs: %w", err)
	}

	query := `
		SELECT ` + logColumns + `, COALESCE(u.username, ''), c.contract_no
		FROM contract_operation_logs l
		JOIN contracts c ON c.id = l.contract_id
		LEFT JOIN actors u ON u.id = l.actor_id` + where + `
		ORDER BY l.created_at DESC
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list operation logs: %w", err)
	}
	defer rows.Close()

	entries, err := scanLogEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListExpiredContractIDs returns active contracts whose expiry date is before asOf
func (s *PostgresContractStore) ListExpiredContractIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	query := `
		SELECT id
		FROM contracts
		WHERE status = $1 AND expire_date IS NOT NULL AND expire_date < $2
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, string(domain.StatusActive), asOf.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired contracts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contract id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// postgresTx is the write scope handed to the engine
type postgresTx struct {
	tx querier
}

func (t *postgresTx) LockContract(ctx context.Context, id string) (*domain.Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts c
		WHERE c.id = $1
		FOR UPDATE
	`

	contract, err := scanContract(t.tx.QueryRowContext(ctx, query, id), false)
	if err != nil {
		return nil, translate(err, "lock contract", "contract not found")
	}
	return contract, nil
}

func (t *postgresTx) InsertContract(ctx context.Context, c *domain.Contract) error {
	query := `
		INSERT INTO contracts (id, title, contract_no, party_a, party_b, amount, sign_date, expire_date, status, note, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := t.tx.ExecContext(ctx, query,
		c.ID,
		c.Title,
		c.ContractNo,
		c.PartyA,
		c.PartyB,
		c.Amount,
		nullDate(c.SignDate),
		nullDate(c.ExpireDate),
		string(c.Status),
		c.Note,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return translate(err, "insert contract", "creator not found")
}

func (t *postgresTx) UpdateContract(ctx context.Context, c *domain.Contract) error {
	query := `
		UPDATE contracts
		SET title = $2, contract_no = $3, party_a = $4, party_b = $5, amount = $6,
		    sign_date = $7, expire_date = $8, status = $9, note = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(ctx, query,
		c.ID,
		c.Title,
		c.ContractNo,
		c.PartyA,
		c.PartyB,
		c.Amount,
		nullDate(c.SignDate),
		nullDate(c.ExpireDate),
		string(c.Status),
		c.Note,
		c.UpdatedAt,
	)
	if err != nil {
		return translate(err, "update contract", "contract not found")
	}
	return expectOneRow(result, "contract not found")
}

// DeleteContract removes logs, attachment rows and the contract explicitly,
// so the cascade does not depend on ON DELETE CASCADE being present.
func (t *postgresTx) DeleteContract(ctx context.Context, id string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT storage_key FROM contract_attachments WHERE contract_id = $1 ORDER BY storage_key`, id)
	if err != nil {
		return nil, translate(err, "list attachment keys", "contract not found")
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan attachment key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachment keys: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contract_operation_logs WHERE contract_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete operation logs: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contract_attachments WHERE contract_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete attachments: %w", err)
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete contract: %w", err)
	}
	if err := expectOneRow(result, "contract not found"); err != nil {
		return nil, err
	}
	return keys, nil
}

func (t *postgresTx) InsertAttachment(ctx context.Context, a *domain.Attachment) error {
	query := `
		INSERT INTO contract_attachments (id, contract_id, file_name, storage_key, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := t.tx.ExecContext(ctx, query, a.ID, a.ContractID, a.FileName, a.StorageKey, a.FileSize, a.CreatedAt)
	return translate(err, "insert attachment", "contract not found")
}

func (t *postgresTx) AppendLog(ctx context.Context, l *domain.OperationLog) error {
	query := `
		INSERT INTO contract_operation_logs (id, contract_id, actor_id, action, from_status, to_status, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.ExecContext(ctx, query,
		l.ID,
		l.ContractID,
		l.ActorID,
		string(l.Action),
		nullStatus(l.FromStatus),
		nullStatus(l.ToStatus),
		nullString(l.Remark),
		l.CreatedAt,
	)
	return translate(err, "append operation log", "contract not found")
}

func scanContract(row rowScanner, withUsername bool) (*domain.Contract, error) {
	var c domain.Contract
	var signDate, expireDate sql.NullTime
	var note sql.NullString

	dest := []interface{}{
		&c.ID,
		&c.Title,
		&c.ContractNo,
		&c.PartyA,
		&c.PartyB,
		&c.Amount,
		&signDate,
		&expireDate,
		&c.Status,
		&note,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if withUsername {
		dest = append(dest, &c.CreatedByUsername)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if signDate.Valid {
		c.SignDate = domain.DateOnly(&signDate.Time)
	}
	if expireDate.Valid {
		c.ExpireDate = domain.DateOnly(&expireDate.Time)
	}
	c.Note = note.String
	return &c, nil
}

func scanLogEntries(rows *sql.Rows) ([]*domain.OperationLogEntry, error) {
	var entries []*domain.OperationLogEntry
	for rows.Next() {
		var e domain.OperationLogEntry
		var from, to, remark sql.NullString
		err := rows.Scan(
			&e.ID,
			&e.ContractID,
			&e.ActorID,
			&e.Action,
			&from,
			&to,
			&remark,
			&e.CreatedAt,
			&e.Username,
			&e.ContractNo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation log: %w", err)
		}
		if from.Valid {
			s := domain.ContractStatus(from.String)
			e.FromStatus = &s
		}
		if to.Valid {
			s := domain.ContractStatus(to.String)
			e.ToStatus = &s
		}
		if remark.Valid {
			r := remark.String
			e.Remark = &r
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation logs: %w", err)
	}
	return entries, nil
}

func expectOneRow(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NotFound(notFound)
	}
	return nil
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func nullStatus(s *domain.ContractStatus) interface{} {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
