package visit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialops/trialops/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const visitCols = `id, participant_id, visit_number, scheduled_on, due_date, visit_date, voucher_given,
	height, weight, bmi, temperature, pulse, sbp, dbp, respiratory_rate,
	hb, rbc, wbc, polymorphs, lymphocytes, monocytes, platelets,
	sgot, sgpt, bilirubin_total, bilirubin_direct, bilirubin_indirect, bun, creatinine,
	total_cholesterol, ldl, hdl, triglycerides,
	nt_pro_bnp, serum_tsh, serum_homocysteine,
	gsh, tnf_alpha, il6, same, sah, five_methylcytosine,
	ecg_report, echo_lvef, upt_result,
	ecg_src, echo_src, efficacy_src, safety_src, prescription_src,
	created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.ParticipantID, &v.VisitNumber, &v.ScheduledOn, &v.DueDate, &v.VisitDate, &v.VoucherGiven,
		&v.Height, &v.Weight, &v.BMI, &v.Temperature, &v.Pulse, &v.SBP, &v.DBP, &v.RespiratoryRate,
		&v.Hb, &v.RBC, &v.WBC, &v.Polymorphs, &v.Lymphocytes, &v.Monocytes, &v.Platelets,
		&v.SGOT, &v.SGPT, &v.BilirubinTotal, &v.BilirubinDirect, &v.BilirubinIndirect, &v.BUN, &v.Creatinine,
		&v.TotalCholesterol, &v.LDL, &v.HDL, &v.Triglycerides,
		&v.NTProBNP, &v.SerumTSH, &v.SerumHomocysteine,
		&v.GSH, &v.TNFAlpha, &v.IL6, &v.SAMe, &v.SAH, &v.FiveMethylcytosine,
		&v.ECGReport, &v.EchoLVEF, &v.UPTResult,
		&v.ECGSrc, &v.EchoSrc, &v.EfficacySrc, &v.SafetySrc, &v.PrescriptionSrc,
		&v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visits (id, participant_id, visit_number, scheduled_on, due_date, voucher_given)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		v.ID, v.ParticipantID, v.VisitNumber, v.ScheduledOn, v.DueDate, v.VoucherGiven)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visits WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, participantID uuid.UUID, visitNumber int) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visits WHERE participant_id = $1 AND visit_number = $2`,
		participantID, visitNumber))
}

func (r *repoPG) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*Visit, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visits WHERE participant_id = $1 ORDER BY visit_number`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	return err
}

func (r *repoPG) SetScheduledOn(ctx context.Context, id uuid.UUID, d time.Time) error {
	return r.setColumn(ctx, id, "scheduled_on", d)
}

func (r *repoPG) SetDueDate(ctx context.Context, id uuid.UUID, d time.Time) error {
	return r.setColumn(ctx, id, "due_date", d)
}

func (r *repoPG) SetVisitDate(ctx context.Context, id uuid.UUID, d time.Time) error {
	return r.setColumn(ctx, id, "visit_date", d)
}

func (r *repoPG) ClearVisitDate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE visits SET visit_date=NULL, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) SetVoucher(ctx context.Context, id uuid.UUID, given bool) error {
	return r.setColumn(ctx, id, "voucher_given", given)
}

func (r *repoPG) setColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE visits SET `+column+`=$2, updated_at=NOW() WHERE id = $1`, id, value)
	return err
}

func (r *repoPG) Patch(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields)+1)
	args := []interface{}{id}
	idx := 2
	for col, val := range fields {
		sets = append(sets, fmt.Sprintf("%s=$%d", col, idx))
		args = append(args, val)
		idx++
	}
	sets = append(sets, "updated_at=NOW()")
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE visits SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	return err
}
