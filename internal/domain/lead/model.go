package lead

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline statuses a lead moves through before enrollment or drop-out.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusScreened  = "screened"
	StatusConverted = "converted"
	StatusDropped   = "dropped"
)

var validStatuses = map[string]bool{
	StatusNew: true, StatusContacted: true, StatusScreened: true,
	StatusConverted: true, StatusDropped: true,
}

// Lead is a prospective participant in the outreach pipeline. Clinical
// details are best-effort, often prefilled from a referral document.
type Lead struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Age      *int      `db:"age" json:"age,omitempty"`
	Sex      *string   `db:"sex" json:"sex,omitempty"`
	Phone    *string   `db:"phone" json:"phone,omitempty"`
	Address  *string   `db:"address" json:"address,omitempty"`
	EchoLVEF *float64  `db:"echo_lvef" json:"echo_lvef,omitempty"`
	Status   string    `db:"status" json:"status"`
	Notes    *string   `db:"notes" json:"notes,omitempty"`

	// Object-store key of the referral document, when one was uploaded.
	DocumentSrc *string `db:"document_src" json:"document_src,omitempty"`

	// Set once the lead is enrolled.
	ParticipantID *uuid.UUID `db:"participant_id" json:"participant_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
