package visit

import (
	"time"

	"github.com/google/uuid"
)

// The protocol runs eight visits per participant. Visit 1 is screening;
// visit 8 is the final follow-up.
const (
	FirstVisit = 1
	LastVisit  = 8
)

// Screening outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Voucher statuses accepted by the voucher endpoint.
const (
	VoucherGiven    = "given"
	VoucherNotGiven = "not_given"
)

// Visit maps to the visits table. A visit is created when its predecessor
// concludes, scheduled when the operator picks an OPD date, and completed
// when visit_date is stamped. A non-null visit_date is the sole source of
// truth for completion.
type Visit struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ParticipantID uuid.UUID `db:"participant_id" json:"participant_id"`
	VisitNumber   int       `db:"visit_number" json:"visit_number"`

	ScheduledOn *time.Time `db:"scheduled_on" json:"scheduled_on,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	VisitDate   *time.Time `db:"visit_date" json:"visit_date,omitempty"`

	VoucherGiven *bool `db:"voucher_given" json:"voucher_given,omitempty"`

	// Vitals.
	Height          *float64 `db:"height" json:"height,omitempty"`
	Weight          *float64 `db:"weight" json:"weight,omitempty"`
	BMI             *float64 `db:"bmi" json:"bmi,omitempty"`
	Temperature     *float64 `db:"temperature" json:"temperature,omitempty"`
	Pulse           *float64 `db:"pulse" json:"pulse,omitempty"`
	SBP             *float64 `db:"sbp" json:"sbp,omitempty"`
	DBP             *float64 `db:"dbp" json:"dbp,omitempty"`
	RespiratoryRate *float64 `db:"respiratory_rate" json:"respiratory_rate,omitempty"`

	// Safety blood panel.
	Hb                *float64 `db:"hb" json:"hb,omitempty"`
	RBC               *float64 `db:"rbc" json:"rbc,omitempty"`
	WBC               *float64 `db:"wbc" json:"wbc,omitempty"`
	Polymorphs        *float64 `db:"polymorphs" json:"polymorphs,omitempty"`
	Lymphocytes       *float64 `db:"lymphocytes" json:"lymphocytes,omitempty"`
	Monocytes         *float64 `db:"monocytes" json:"monocytes,omitempty"`
	Platelets         *float64 `db:"platelets" json:"platelets,omitempty"`
	SGOT              *float64 `db:"sgot" json:"sgot,omitempty"`
	SGPT              *float64 `db:"sgpt" json:"sgpt,omitempty"`
	BilirubinTotal    *float64 `db:"bilirubin_total" json:"bilirubin_total,omitempty"`
	BilirubinDirect   *float64 `db:"bilirubin_direct" json:"bilirubin_direct,omitempty"`
	BilirubinIndirect *float64 `db:"bilirubin_indirect" json:"bilirubin_indirect,omitempty"`
	BUN               *float64 `db:"bun" json:"bun,omitempty"`
	Creatinine        *float64 `db:"creatinine" json:"creatinine,omitempty"`
	TotalCholesterol  *float64 `db:"total_cholesterol" json:"total_cholesterol,omitempty"`
	LDL               *float64 `db:"ldl" json:"ldl,omitempty"`
	HDL               *float64 `db:"hdl" json:"hdl,omitempty"`
	Triglycerides     *float64 `db:"triglycerides" json:"triglycerides,omitempty"`

	// Cardiac markers.
	NTProBNP          *float64 `db:"nt_pro_bnp" json:"nt_pro_bnp,omitempty"`
	SerumTSH          *float64 `db:"serum_tsh" json:"serum_tsh,omitempty"`
	SerumHomocysteine *float64 `db:"serum_homocysteine" json:"serum_homocysteine,omitempty"`

	// Efficacy biomarker panel.
	GSH                *float64 `db:"gsh" json:"gsh,omitempty"`
	TNFAlpha           *float64 `db:"tnf_alpha" json:"tnf_alpha,omitempty"`
	IL6                *float64 `db:"il6" json:"il6,omitempty"`
	SAMe               *float64 `db:"same" json:"same,omitempty"`
	SAH                *float64 `db:"sah" json:"sah,omitempty"`
	FiveMethylcytosine *float64 `db:"five_methylcytosine" json:"five_methylcytosine,omitempty"`

	ECGReport *string  `db:"ecg_report" json:"ecg_report,omitempty"`
	EchoLVEF  *float64 `db:"echo_lvef" json:"echo_lvef,omitempty"`
	UPTResult *string  `db:"upt_result" json:"upt_result,omitempty"`

	// Object-store keys for uploaded documents.
	ECGSrc          *string `db:"ecg_src" json:"ecg_src,omitempty"`
	EchoSrc         *string `db:"echo_src" json:"echo_src,omitempty"`
	EfficacySrc     *string `db:"efficacy_src" json:"efficacy_src,omitempty"`
	SafetySrc       *string `db:"safety_src" json:"safety_src,omitempty"`
	PrescriptionSrc *string `db:"prescription_src" json:"prescription_src,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Completed reports whether the visit has been performed.
func (v *Visit) Completed() bool { return v.VisitDate != nil }

// NeedsVoucher reports whether voucher status must be recorded before this
// visit may conclude.
func (v *Visit) NeedsVoucher() bool {
	return v.VisitNumber == 4 || v.VisitNumber == 5 || v.VisitNumber == 7
}
