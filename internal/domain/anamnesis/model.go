package anamnesis

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("anamnesis version not found")
	ErrAlreadySigned   = errors.New("anamnesis version is already signed")
	ErrVersionConflict = errors.New("version number already taken for this patient")
	ErrConsentRequired = errors.New("consent must be explicitly affirmed")
	ErrInvalidLanguage = errors.New("unsupported language")
)

// Version is one immutable submission of the medical-history questionnaire.
// Its payload, consent block and version number never change after creation;
// the clinician counter-signature is the single one-way transition.
type Version struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Version   int       `db:"version" json:"version"`
	Language  string    `db:"language" json:"language"`
	FormData  FormData  `db:"form_data" json:"form_data"`

	ConsentGiven   bool       `db:"consent_given" json:"consent_given"`
	ConsentGivenAt *time.Time `db:"consent_given_at" json:"consent_given_at,omitempty"`
	ConsentIP      string     `db:"consent_ip" json:"consent_ip,omitempty"`
	// SignatureData is the patient's signature image captured at submission.
	SignatureData *string `db:"signature_data" json:"signature_data,omitempty"`

	SignedBy           *uuid.UUID `db:"signed_by" json:"signed_by,omitempty"`
	SignedAt           *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	ClinicianSignature *string    `db:"clinician_signature" json:"-"`

	RecordedBy *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

func (v *Version) Signed() bool {
	return v.SignedBy != nil
}

// Snapshot returns the audit view of the record. The form payload is kept
// as one opaque value since versions are never field-edited.
func (v *Version) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":       v.PatientID,
		"version":          v.Version,
		"language":         v.Language,
		"form_data":        v.FormData,
		"consent_given":    v.ConsentGiven,
		"consent_given_at": v.ConsentGivenAt,
		"consent_ip":       v.ConsentIP,
		"signed_by":        v.SignedBy,
		"signed_at":        v.SignedAt,
		"recorded_by":      v.RecordedBy,
	}
}

// FormData is the typed questionnaire tree. Every branch is optional; the
// renderer substitutes placeholders for whatever is absent.
type FormData struct {
	SpecialSituations *SpecialSituations `json:"special_situations,omitempty"`
	Allergies         *Allergies         `json:"allergies,omitempty"`
	CurrentTreatment  *CurrentTreatment  `json:"current_treatment,omitempty"`
	Diseases          *Diseases          `json:"diseases,omitempty"`
	SurgicalHistory   *SurgicalHistory   `json:"surgical_history,omitempty"`
	DentalHistory     *DentalHistory     `json:"dental_history,omitempty"`
	Habits            *Habits            `json:"habits,omitempty"`
}

type SpecialSituations struct {
	Pregnant       bool   `json:"pregnant,omitempty"`
	GestationalAge string `json:"gestational_age,omitempty"`
	Menstruating   bool   `json:"menstruating,omitempty"`
}

type Allergies struct {
	DrugAllergies    []string `json:"drug_allergies,omitempty"`
	NonDrugAllergies []string `json:"non_drug_allergies,omitempty"`
}

// Medication is a name/dose pair. Early submissions spelled the name field
// "drug"; UnmarshalJSON accepts both spellings.
type Medication struct {
	Name string `json:"name,omitempty"`
	Dose string `json:"dose,omitempty"`
}

func (m *Medication) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name string `json:"name"`
		Drug string `json:"drug"`
		Dose string `json:"dose"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Name = raw.Name
	if m.Name == "" {
		m.Name = raw.Drug
	}
	m.Dose = raw.Dose
	return nil
}

type CurrentTreatment struct {
	Medications []Medication `json:"medications,omitempty"`
	Antibiotics []Medication `json:"antibiotics,omitempty"`

	Anticoagulants    bool   `json:"anticoagulants,omitempty"`
	AnticoagulantDrug string `json:"anticoagulant_drug,omitempty"`
	AnticoagulantINR  string `json:"anticoagulant_inr,omitempty"`

	Bisphosphonates        bool   `json:"bisphosphonates,omitempty"`
	BisphosphonateRoute    string `json:"bisphosphonate_route,omitempty"` // oral | iv
	BisphosphonateDuration string `json:"bisphosphonate_duration,omitempty"`
	BisphosphonateBetaCTX  string `json:"bisphosphonate_beta_ctx,omitempty"`
}

type Diseases struct {
	CongenitalDiseases   string `json:"congenital_diseases,omitempty"`
	OccupationalDiseases string `json:"occupational_diseases,omitempty"`

	Heart          *HeartDisease     `json:"heart,omitempty"`
	Vascular       *VascularDisease  `json:"vascular,omitempty"`
	Respiratory    *Respiratory      `json:"respiratory,omitempty"`
	Digestive      *Digestive        `json:"digestive,omitempty"`
	Hepatic        *Hepatic          `json:"hepatic,omitempty"`
	Renal          *Renal            `json:"renal,omitempty"`
	Diabetes       *Diabetes         `json:"diabetes,omitempty"`
	Endocrine      *Endocrine        `json:"endocrine,omitempty"`
	Rheumatic      *Rheumatic        `json:"rheumatic,omitempty"`
	Skeletal       *Skeletal         `json:"skeletal,omitempty"`
	Neurological   *Neurological     `json:"neurological,omitempty"`
	Psychiatric    *Psychiatric      `json:"psychiatric,omitempty"`
	Neurovegetative *Neurovegetative `json:"neurovegetative,omitempty"`
	Hematologic    *Hematologic      `json:"hematologic,omitempty"`
	Infectious     *Infectious       `json:"infectious,omitempty"`

	Neoplasms        bool   `json:"neoplasms,omitempty"`
	NeoplasmsDetails string `json:"neoplasms_details,omitempty"`

	OtherDiseases        bool   `json:"other_diseases,omitempty"`
	OtherDiseasesDetails string `json:"other_diseases_details,omitempty"`
}

type HeartDisease struct {
	AnginaPectoris           bool   `json:"angina_pectoris,omitempty"`
	MyocardialInfarction     bool   `json:"myocardial_infarction,omitempty"`
	MyocardialInfarctionWhen string `json:"myocardial_infarction_when,omitempty"`
	Arrhythmias              bool   `json:"arrhythmias,omitempty"`
	Blocks                   bool   `json:"blocks,omitempty"`
	Failure                  bool   `json:"failure,omitempty"`
	FailureNYHA              string `json:"failure_nyha,omitempty"`
	Valvulopathies           bool   `json:"valvulopathies,omitempty"`
	Endocarditis             bool   `json:"endocarditis,omitempty"`
	CardiacSurgery           bool   `json:"cardiac_surgery,omitempty"`
}

type VascularDisease struct {
	PeripheralArterialDisease bool   `json:"peripheral_arterial_disease,omitempty"`
	Thrombophlebitis          bool   `json:"thrombophlebitis,omitempty"`
	Hypotension               bool   `json:"hypotension,omitempty"`
	Hypertension              bool   `json:"hypertension,omitempty"`
	HypertensionMax           string `json:"hypertension_max,omitempty"`
	Stroke                    bool   `json:"stroke,omitempty"`
}

type Respiratory struct {
	Asthma            bool `json:"asthma,omitempty"`
	Emphysema         bool `json:"emphysema,omitempty"`
	ChronicBronchitis bool `json:"chronic_bronchitis,omitempty"`
	Tuberculosis      bool `json:"tuberculosis,omitempty"`
}

type Digestive struct {
	GastritisUlcer bool `json:"gastritis_ulcer,omitempty"`
}

type Hepatic struct {
	Steatosis        bool `json:"steatosis,omitempty"`
	ChronicHepatitis bool `json:"chronic_hepatitis,omitempty"`
	Cirrhosis        bool `json:"cirrhosis,omitempty"`
}

type Renal struct {
	Insufficiency bool `json:"insufficiency,omitempty"`
	Hemodialysis  bool `json:"hemodialysis,omitempty"`
}

type Diabetes struct {
	Insulin bool `json:"insulin,omitempty"`
	Oral    bool `json:"oral,omitempty"`
}

type Endocrine struct {
	Hypothyroidism  bool `json:"hypothyroidism,omitempty"`
	Hyperthyroidism bool `json:"hyperthyroidism,omitempty"`
}

type Rheumatic struct {
	RheumatoidArthritis bool `json:"rheumatoid_arthritis,omitempty"`
	Collagenoses        bool `json:"collagenoses,omitempty"`
}

type Skeletal struct {
	Osteoporosis bool `json:"osteoporosis,omitempty"`
}

type Neurological struct {
	Epilepsy bool `json:"epilepsy,omitempty"`
}

type Psychiatric struct {
	Depression    bool `json:"depression,omitempty"`
	Schizophrenia bool `json:"schizophrenia,omitempty"`
}

type Neurovegetative struct {
	PanicAttacks bool `json:"panic_attacks,omitempty"`
}

type Hematologic struct {
	Anemia           bool `json:"anemia,omitempty"`
	Thalassemia      bool `json:"thalassemia,omitempty"`
	Leukemia         bool `json:"leukemia,omitempty"`
	Hemophilia       bool `json:"hemophilia,omitempty"`
	Thrombocytopenia bool `json:"thrombocytopenia,omitempty"`
	VonWillebrand    bool `json:"von_willebrand,omitempty"`
}

type Infectious struct {
	HepatitisB bool `json:"hepatitis_b,omitempty"`
	HepatitisC bool `json:"hepatitis_c,omitempty"`
	HepatitisD bool `json:"hepatitis_d,omitempty"`
	HIV        bool `json:"hiv,omitempty"`
}

// SurgicalHistory's complications field was spelled "surgery_complications"
// by the first questionnaire revision; both are accepted.
type SurgicalHistory struct {
	PreviousSurgeries string `json:"previous_surgeries,omitempty"`
	Transfusions      bool   `json:"transfusions,omitempty"`
	Complications     string `json:"complications,omitempty"`
}

func (s *SurgicalHistory) UnmarshalJSON(data []byte) error {
	var raw struct {
		PreviousSurgeries    string `json:"previous_surgeries"`
		Transfusions         bool   `json:"transfusions"`
		Complications        string `json:"complications"`
		SurgeryComplications string `json:"surgery_complications"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.PreviousSurgeries = raw.PreviousSurgeries
	s.Transfusions = raw.Transfusions
	s.Complications = raw.Complications
	if s.Complications == "" {
		s.Complications = raw.SurgeryComplications
	}
	return nil
}

type DentalHistory struct {
	AnesthesiaTypes  *AnesthesiaTypes `json:"anesthesia_types,omitempty"`
	AdverseReactions string           `json:"adverse_reactions,omitempty"`
}

type AnesthesiaTypes struct {
	Local     bool `json:"local,omitempty"`
	Plexal    bool `json:"plexal,omitempty"`
	Troncular bool `json:"troncular,omitempty"`
	General   bool `json:"general,omitempty"`
}

type Habits struct {
	Tobacco         bool   `json:"tobacco,omitempty"`
	TobaccoAmount   string `json:"tobacco_amount,omitempty"`
	TobaccoDuration string `json:"tobacco_duration,omitempty"`

	Alcohol         bool   `json:"alcohol,omitempty"`
	AlcoholAmount   string `json:"alcohol_amount,omitempty"`
	AlcoholDuration string `json:"alcohol_duration,omitempty"`

	Drugs         bool   `json:"drugs,omitempty"`
	DrugsAmount   string `json:"drugs_amount,omitempty"`
	DrugsDuration string `json:"drugs_duration,omitempty"`
}
