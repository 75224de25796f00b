package resuscitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resus/resus/internal/domain/audittrail"
	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const caseCols = `id, age_years, age_months, weight_kg, current_phase, findings,
	status, phase_timings, total_time_seconds, started_at, ended_at,
	created_by, created_at, updated_at`

const actionCols = `case_id, action_id, action_title, phase, completed_at, duration_seconds,
	clinical_notes, skipped, skip_reason, vitals`

func (r *repoPG) Create(ctx context.Context, c *Case) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO resus_case (`+caseCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.Patient.AgeYears, c.Patient.AgeMonths, c.Patient.WeightKg, c.CurrentPhase, c.Findings,
		c.Trail.OverallStatus, c.Trail.PhaseTimings, c.Trail.TotalTimeSeconds, c.Trail.StartedAt, c.Trail.EndedAt,
		c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM resus_case WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadActions(ctx, []*Case{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) Update(ctx context.Context, c *Case) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE resus_case SET
			current_phase=$2, findings=$3, status=$4, phase_timings=$5,
			total_time_seconds=$6, ended_at=$7, updated_at=$8
		WHERE id = $1`,
		c.ID, c.CurrentPhase, c.Findings, c.Trail.OverallStatus, c.Trail.PhaseTimings,
		c.Trail.TotalTimeSeconds, c.Trail.EndedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendAction inserts the entry and the new trail totals in one
// transaction. Re-delivery of an entry already stored is a no-op.
func (r *repoPG) AppendAction(ctx context.Context, c *Case, entry audittrail.CompletedAction) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		var vitals interface{}
		if len(entry.VitalsAtCompletion) > 0 {
			vitals = entry.VitalsAtCompletion
		}
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO resus_case_action (id, seq, `+actionCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (case_id, action_id, completed_at) DO NOTHING`,
			uuid.New(), len(c.Trail.Actions)-1,
			c.ID, entry.ActionID, entry.ActionTitle, entry.Phase, entry.CompletedAt, entry.DurationSeconds,
			entry.ClinicalNotes, entry.Skipped, entry.SkipReason, vitals,
		)
		if err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return r.Update(ctx, c)
	})
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Case, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM resus_case`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseCols+` FROM resus_case ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadActions(ctx, cases); err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// loadActions fills every case's trail with its entries in recorded order.
func (r *repoPG) loadActions(ctx context.Context, cases []*Case) error {
	if len(cases) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(cases))
	byID := make(map[uuid.UUID]*Case, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
		byID[c.ID] = c
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+actionCols+` FROM resus_case_action WHERE case_id = ANY($1) ORDER BY case_id, seq`, ids)
	if err != nil {
		return fmt.Errorf("load audit entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var caseID uuid.UUID
		var a audittrail.CompletedAction
		var vitals map[string]float64
		if err := rows.Scan(&caseID, &a.ActionID, &a.ActionTitle, &a.Phase, &a.CompletedAt, &a.DurationSeconds,
			&a.ClinicalNotes, &a.Skipped, &a.SkipReason, &vitals); err != nil {
			return fmt.Errorf("scan audit entry: %w", err)
		}
		a.CompletedAt = a.CompletedAt.UTC()
		a.VitalsAtCompletion = vitals
		if c, ok := byID[caseID]; ok {
			c.Trail.Actions = append(c.Trail.Actions, a)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (*Case, error) {
	var c Case
	var status string
	var timings map[survey.Phase]int
	var startedAt time.Time
	var endedAt *time.Time
	err := row.Scan(&c.ID, &c.Patient.AgeYears, &c.Patient.AgeMonths, &c.Patient.WeightKg, &c.CurrentPhase, &c.Findings,
		&status, &timings, &c.Trail.TotalTimeSeconds, &startedAt, &endedAt,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}

	params, err := patient.Derive(c.Patient)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", c.ID, err)
	}
	c.Parameters = params

	c.Trail.CaseID = c.ID.String()
	c.Trail.Patient = c.Patient
	c.Trail.StartedAt = startedAt.UTC()
	if endedAt != nil {
		end := endedAt.UTC()
		c.Trail.EndedAt = &end
	}
	c.Trail.OverallStatus = audittrail.Status(status)
	c.Trail.PhaseTimings = timings
	if c.Trail.PhaseTimings == nil {
		c.Trail.PhaseTimings = map[survey.Phase]int{}
	}
	c.Trail.Actions = []audittrail.CompletedAction{}
	return &c, nil
}
