package lead

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

const leadCols = `id, name, age, sex, phone, address, echo_lvef, status, notes,
	document_src, participant_id, created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Name, &l.Age, &l.Sex, &l.Phone, &l.Address, &l.EchoLVEF, &l.Status, &l.Notes,
		&l.DocumentSrc, &l.ParticipantID, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *repoPG) Create(ctx context.Context, l *Lead) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO leads (id, name, age, sex, phone, address, echo_lvef, status, notes, document_src)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		l.ID, l.Name, l.Age, l.Sex, l.Phone, l.Address, l.EchoLVEF, l.Status, l.Notes, l.DocumentSrc)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	return scanLead(r.conn(ctx).QueryRow(ctx, `SELECT `+leadCols+` FROM leads WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, l *Lead) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE leads SET name=$2, age=$3, sex=$4, phone=$5, address=$6, echo_lvef=$7,
			status=$8, notes=$9, document_src=$10, participant_id=$11, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Name, l.Age, l.Sex, l.Phone, l.Address, l.EchoLVEF,
		l.Status, l.Notes, l.DocumentSrc, l.ParticipantID)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Lead, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + leadCols + ` FROM leads` + where
	if status != "" {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
