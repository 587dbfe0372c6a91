package participant

import (
	"context"

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

const participantCols = `id, screening_id, randomization_id, randomization_code, screening_failure,
	first_name, middle_name, last_name, initials, age, sex, phone, alternate_phone,
	address, education, occupation, income, signature_src, created_by, created_at, updated_at`

func scanParticipant(row pgx.Row) (*Participant, error) {
	var p Participant
	err := row.Scan(&p.ID, &p.ScreeningID, &p.RandomizationID, &p.RandomizationCode, &p.ScreeningFailure,
		&p.FirstName, &p.MiddleName, &p.LastName, &p.Initials, &p.Age, &p.Sex, &p.Phone, &p.AlternatePhone,
		&p.Address, &p.Education, &p.Occupation, &p.Income, &p.SignatureSrc, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Participant) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO participants (id, screening_id, randomization_id, randomization_code, screening_failure,
			first_name, middle_name, last_name, initials, age, sex, phone, alternate_phone,
			address, education, occupation, income, signature_src, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		p.ID, p.ScreeningID, p.RandomizationID, p.RandomizationCode, p.ScreeningFailure,
		p.FirstName, p.MiddleName, p.LastName, p.Initials, p.Age, p.Sex, p.Phone, p.AlternatePhone,
		p.Address, p.Education, p.Occupation, p.Income, p.SignatureSrc, p.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Participant, error) {
	return scanParticipant(r.conn(ctx).QueryRow(ctx, `SELECT `+participantCols+` FROM participants WHERE id = $1`, id))
}

func (r *repoPG) GetByScreeningID(ctx context.Context, screeningID string) (*Participant, error) {
	return scanParticipant(r.conn(ctx).QueryRow(ctx, `SELECT `+participantCols+` FROM participants WHERE screening_id = $1`, screeningID))
}

func (r *repoPG) Update(ctx context.Context, p *Participant) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE participants SET randomization_code=$2, first_name=$3, middle_name=$4, last_name=$5,
			initials=$6, age=$7, sex=$8, phone=$9, alternate_phone=$10, address=$11,
			education=$12, occupation=$13, income=$14, signature_src=$15, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.RandomizationCode, p.FirstName, p.MiddleName, p.LastName,
		p.Initials, p.Age, p.Sex, p.Phone, p.AlternatePhone, p.Address,
		p.Education, p.Occupation, p.Income, p.SignatureSrc)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Participant, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+participantCols+` FROM participants ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *repoPG) ScreeningIDsForUpdate(ctx context.Context) ([]string, error) {
	if err := db.AcquireSequenceLock(ctx, r.conn(ctx), "screening"); err != nil {
		return nil, err
	}
	return r.stringColumn(ctx, `SELECT screening_id FROM participants`)
}

func (r *repoPG) RandomizationIDsForUpdate(ctx context.Context) ([]string, error) {
	if err := db.AcquireSequenceLock(ctx, r.conn(ctx), "randomization"); err != nil {
		return nil, err
	}
	return r.stringColumn(ctx, `SELECT randomization_id FROM participants WHERE randomization_id IS NOT NULL`)
}

func (r *repoPG) stringColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) SetRandomizationID(ctx context.Context, id uuid.UUID, randomizationID string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE participants SET randomization_id=$2, updated_at=NOW() WHERE id = $1`, id, randomizationID)
	return err
}

func (r *repoPG) SetRandomizationCode(ctx context.Context, id uuid.UUID, code string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE participants SET randomization_code=$2, updated_at=NOW() WHERE id = $1`, id, code)
	return err
}

func (r *repoPG) SetScreeningFailure(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE participants SET screening_failure=TRUE, updated_at=NOW() WHERE id = $1`, id)
	return err
}
