package participant

import (
	"time"

	"github.com/google/uuid"
)

// Randomization codes name the two study arms.
const (
	CodeA = "A"
	CodeB = "B"
)

// Participant maps to the participants table. A participant enters the study
// through screening; screening_id is assigned at creation and
// randomization_id only once screening concludes successfully.
type Participant struct {
	ID                uuid.UUID `db:"id" json:"id"`
	ScreeningID       string    `db:"screening_id" json:"screening_id"`
	RandomizationID   *string   `db:"randomization_id" json:"randomization_id,omitempty"`
	RandomizationCode *string   `db:"randomization_code" json:"randomization_code,omitempty"`
	ScreeningFailure  bool      `db:"screening_failure" json:"screening_failure"`

	FirstName      string  `db:"first_name" json:"first_name"`
	MiddleName     *string `db:"middle_name" json:"middle_name,omitempty"`
	LastName       string  `db:"last_name" json:"last_name"`
	Initials       *string `db:"initials" json:"initials,omitempty"`
	Age            *int    `db:"age" json:"age,omitempty"`
	Sex            *string `db:"sex" json:"sex,omitempty"`
	Phone          *string `db:"phone" json:"phone,omitempty"`
	AlternatePhone *string `db:"alternate_phone" json:"alternate_phone,omitempty"`
	Address        *string `db:"address" json:"address,omitempty"`
	Education      *string `db:"education" json:"education,omitempty"`
	Occupation     *string `db:"occupation" json:"occupation,omitempty"`
	Income         *string `db:"income" json:"income,omitempty"`

	// Object-store key of the signed consent form.
	SignatureSrc *string `db:"signature_src" json:"signature_src,omitempty"`

	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Randomized reports whether the participant has been assigned a study arm
// identifier.
func (p *Participant) Randomized() bool { return p.RandomizationID != nil }
