package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reminder-engine/internal/domain/reminder"
	"reminder-engine/internal/infrastructure/monitoring"
	"reminder-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

// CreditRepository implements reminder.Repository against the shared CRM
// schema. The reminder engine only touches recordatorio_lock and
// recordatorio_update on creditos, plus inserts into crm_mensajes.
type CreditRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ reminder.Repository = (*CreditRepository)(nil)

func NewCreditRepository(db DBPool, logger *slog.Logger) *CreditRepository {
	return &CreditRepository{db: db, logger: logger.With("component", "CreditRepository")}
}

const getTenantSQL = `
        SELECT id, nombre, cron_recordatorio, COALESCE(cbu_alias, '')
        FROM empresas
        WHERE id = $1`

func (r *CreditRepository) GetTenant(ctx context.Context, tenantID int64) (*reminder.Tenant, error) {
	status := "success"
	startTime := time.Now()

	var t reminder.Tenant
	err := r.db.QueryRow(ctx, getTenantSQL, tenantID).Scan(
		&t.ID, &t.Name, &t.ReminderEnabled, &t.PaymentAlias,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetTenant", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Tenant not found", "tenant_id", tenantID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get tenant", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &t, nil
}

const reclaimOrphanLocksSQL = `
        UPDATE creditos
        SET recordatorio_lock = FALSE
        WHERE id_empresa = $1
          AND recordatorio_lock = TRUE
          AND (
              recordatorio_update IS NULL
              OR recordatorio_update::date < $2::date
          )`

func (r *CreditRepository) ReclaimOrphanLocks(ctx context.Context, tenantID int64, today time.Time) (int64, error) {
	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, reclaimOrphanLocksSQL, tenantID, today)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ReclaimOrphanLocks", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to reclaim orphan locks", "tenant_id", tenantID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cmdTag.RowsAffected(), nil
}

// findDueCreditsSQL selects the credits eligible for a reminder: not
// voided, borrower not in a terminal status and not onboarded today,
// credit not opened today, unpaid balance (installments plus penalty
// interest) positive, nearest unpaid due date within five days, not
// locked and not already notified today.
const findDueCreditsSQL = `
        SELECT
            cred.id,
            cred.id_empresa,
            pe.id AS id_cliente,
            pe.nombre,
            COALESCE(pe.celular, '') AS celular,
            COALESCE(em.nombre, '') AS nombre_empresa,
            COALESCE(em.cbu_alias, '') AS cbu_alias,
            deuda.fecha_vencimiento,
            deuda.sum_valor + COALESCE(ti.total_sum, 0) AS total_deuda,
            cred.fecha_proxima_visita
        FROM creditos cred
        INNER JOIN persona pe
            ON cred.id_cliente = pe.id
            AND pe.anunciado_fecha IS DISTINCT FROM $2::date
        LEFT JOIN empresas em ON em.id = pe.id_empresa
        INNER JOIN (
            SELECT
                id_credito,
                MIN(fecha_vencimiento) AS fecha_vencimiento,
                SUM(valor) AS sum_valor
            FROM cuotas
            WHERE estado = 0
            GROUP BY id_credito
        ) deuda ON deuda.id_credito = cred.id
        LEFT JOIN (
            SELECT
                id_credito,
                SUM(valor) AS total_sum
            FROM cuotas_interes_punitorio
            WHERE pagado = 0
            GROUP BY id_credito
        ) ti ON ti.id_credito = cred.id
        WHERE
            cred.anulado = FALSE
            AND pe.estado NOT IN (5, 7, 8, 9)
            AND cred.fecha_alta IS DISTINCT FROM $2::date
            AND cred.id_empresa = $1
            AND cred.recordatorio_lock = FALSE
            AND (
                cred.recordatorio_update IS NULL
                OR cred.recordatorio_update::date < $2::date
            )
            AND deuda.sum_valor > 0
            AND deuda.fecha_vencimiento <= $2::date + INTERVAL '5 days'
        ORDER BY deuda.fecha_vencimiento ASC`

func (r *CreditRepository) FindDueCredits(ctx context.Context, tenantID int64, today time.Time) ([]reminder.Credit, error) {
	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, findDueCreditsSQL, tenantID, today)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindDueCredits", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query due credits", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	credits := make([]reminder.Credit, 0)
	for rows.Next() {
		var c reminder.Credit
		err := rows.Scan(
			&c.ID, &c.TenantID, &c.BorrowerID, &c.BorrowerName, &c.Phone,
			&c.TenantName, &c.PaymentAlias, &c.DueDate, &c.TotalDebt,
			&c.NextVisitDate,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan due credit row", "tenant_id", tenantID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		credits = append(credits, c)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating due credit rows", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return credits, nil
}

const tryLockSQL = `
        UPDATE creditos
        SET recordatorio_lock = TRUE
        WHERE id = $1
          AND recordatorio_lock = FALSE`

// TryLock is the sole correctness mechanism for at-most-one concurrent
// notification per credit. The conditional update either flips the lock
// (one row affected) or loses the race (zero rows); there is no
// read-then-write window.
func (r *CreditRepository) TryLock(ctx context.Context, creditID int64) (bool, error) {
	status := "success"
	startTime := time.Now()

	cmdTag, err := r.db.Exec(ctx, tryLockSQL, creditID)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("TryLock", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to acquire reminder lock", "credit_id", creditID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

const releaseNotifiedSQL = `
        UPDATE creditos
        SET recordatorio_update = $2,
            recordatorio_lock = FALSE
        WHERE id = ANY($1)`

func (r *CreditRepository) ReleaseNotified(ctx context.Context, creditIDs []int64, notifiedAt time.Time) error {
	if len(creditIDs) == 0 {
		return nil
	}

	status := "success"
	startTime := time.Now()

	_, err := r.db.Exec(ctx, releaseNotifiedSQL, creditIDs, notifiedAt)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ReleaseNotified", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to release reminder locks", "credit_ids", creditIDs, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

const saveOutboundMessageSQL = `
        INSERT INTO crm_mensajes
            (id_empresa, id_msg, destinatario, message, id_operador, fecha_reg)
        VALUES ($1, $2, $3, $4, $5, $6)`

func (r *CreditRepository) SaveOutboundMessage(ctx context.Context, msg *reminder.OutboundMessage) error {
	status := "success"
	startTime := time.Now()

	_, err := r.db.Exec(ctx, saveOutboundMessageSQL,
		msg.TenantID, msg.MessageID, msg.To, msg.Body, msg.OperatorID, msg.SentAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("SaveOutboundMessage", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save outbound message", "message_id", msg.MessageID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}
