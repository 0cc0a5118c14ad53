package anamnesis

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Crissavino/medical-dental-history/internal/domain/patient"
)

// placeholder stands in for every absent leaf, list or branch.
const placeholder = "---"

// pdfEpoch pins the document creation date so repeat renders of the same
// version are byte-identical. The artifact is a legal consent document;
// its bytes must not depend on when it was requested.
var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Render produces the fixed three-page questionnaire document: page 1
// identity and situational sections, page 2 the disease checklist, page 3
// histories, habits, consent and signatures.
func Render(p *patient.Patient, v *Version, t map[string]string) ([]byte, error) {
	r := &renderer{
		pdf: fpdf.New("P", "mm", "A4", ""),
		t:   t,
	}
	r.tr = r.pdf.UnicodeTranslatorFromDescriptor("cp1250")
	r.pdf.SetCreationDate(pdfEpoch)
	r.pdf.SetModificationDate(pdfEpoch)
	r.pdf.SetCatalogSort(true)
	r.pdf.SetMargins(15, 18, 15)
	r.pdf.SetAutoPageBreak(false, 18)

	r.pageIdentity(p, v)
	r.pageDiseases(v)
	r.pageHistoriesAndConsent(p, v)

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render questionnaire pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	t   map[string]string
}

func (r *renderer) label(key string) string {
	return r.t["anamnesis."+key]
}

func (r *renderer) yes() string { return r.label("yes_word") }
func (r *renderer) no() string  { return r.label("no_word") }

func check(b bool) string {
	if b {
		return "[x]"
	}
	return "[ ]"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func joinOrDash(items []string) string {
	var nonEmpty []string
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return placeholder
	}
	return strings.Join(nonEmpty, ", ")
}

func medsOrDash(meds []Medication) string {
	var parts []string
	for _, m := range meds {
		name := m.Name
		if name == "" {
			name = "?"
		}
		dose := m.Dose
		if dose == "" {
			dose = "?"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", name, dose))
	}
	if len(parts) == 0 {
		return placeholder
	}
	return strings.Join(parts, ", ")
}

func (r *renderer) pageHeader() {
	r.pdf.SetFont("Helvetica", "", 8)
	r.pdf.SetTextColor(136, 136, 136)
	r.pdf.CellFormat(0, 5, r.tr(r.label("clinic_name")+" - "+r.label("title")), "", 1, "C", false, 0, "")
	r.pdf.SetTextColor(26, 26, 26)
	r.pdf.Ln(3)
}

func (r *renderer) sectionTitle(num int, key string) {
	r.pdf.Ln(3)
	r.pdf.SetFont("Helvetica", "B", 10)
	r.pdf.CellFormat(0, 6, r.tr(fmt.Sprintf("%d. %s", num, r.label(key))), "B", 1, "L", false, 0, "")
	r.pdf.Ln(1)
}

func (r *renderer) line(text string) {
	r.pdf.SetFont("Helvetica", "", 9)
	r.pdf.MultiCell(0, 5, r.tr(text), "", "L", false)
}

func (r *renderer) boldLine(label, value string) {
	r.pdf.SetFont("Helvetica", "B", 9)
	w := r.pdf.GetStringWidth(r.tr(label+": ")) + 1
	r.pdf.CellFormat(w, 5, r.tr(label+":"), "", 0, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 9)
	r.pdf.MultiCell(0, 5, r.tr(value), "", "L", false)
}

// -- page 1 --

func (r *renderer) pageIdentity(p *patient.Patient, v *Version) {
	r.pdf.AddPage()

	r.pdf.SetFont("Helvetica", "B", 14)
	r.pdf.SetTextColor(26, 26, 26)
	r.pdf.CellFormat(0, 8, r.tr(r.label("title")), "", 1, "C", false, 0, "")
	r.pdf.SetFont("Helvetica", "I", 8)
	r.pdf.SetTextColor(85, 85, 85)
	r.pdf.CellFormat(0, 5, r.tr(r.label("pdf_subtitle")), "", 1, "C", false, 0, "")
	r.pdf.SetTextColor(26, 26, 26)
	r.pdf.Ln(4)

	address := joinOrDash([]string{p.Address, p.City, p.County})
	r.identityRow(r.label("patient_full_name"), p.FullName())
	r.identityRow(r.label("patient_cnp_passport"), orDash(p.CNP))
	r.identityRow(r.label("patient_home_address"), address)
	r.identityRow(r.label("patient_phone")+" / "+r.label("patient_email"),
		orDash(p.Phone)+" / "+orDash(p.Email))
	r.identityRow(r.label("patient_first_visit_date"), v.CreatedAt.UTC().Format("02/01/2006"))

	ss := v.FormData.SpecialSituations
	if ss == nil {
		ss = &SpecialSituations{}
	}
	r.sectionTitle(1, "section_1")
	pregnantLine := fmt.Sprintf("%s %s  %s %s", check(ss.Pregnant), r.label("pregnant"), check(!ss.Pregnant), r.no())
	if ss.Pregnant && ss.GestationalAge != "" {
		pregnantLine += fmt.Sprintf("  (%s: %s)", r.label("gestational_age"), ss.GestationalAge)
	}
	r.line(pregnantLine)
	r.line(fmt.Sprintf("%s %s  %s %s", check(ss.Menstruating), r.label("menstruating"), check(!ss.Menstruating), r.no()))

	al := v.FormData.Allergies
	if al == nil {
		al = &Allergies{}
	}
	r.sectionTitle(2, "section_2")
	r.boldLine(r.label("drug_allergies"), joinOrDash(al.DrugAllergies))
	r.boldLine(r.label("non_drug_allergies"), joinOrDash(al.NonDrugAllergies))

	ct := v.FormData.CurrentTreatment
	if ct == nil {
		ct = &CurrentTreatment{}
	}
	r.sectionTitle(3, "section_3")
	r.boldLine(r.label("medications"), medsOrDash(ct.Medications))

	antibioticsLine := fmt.Sprintf("%s %s  %s %s", check(len(ct.Antibiotics) > 0), r.yes(), check(len(ct.Antibiotics) == 0), r.no())
	if len(ct.Antibiotics) > 0 {
		antibioticsLine += "  " + medsOrDash(ct.Antibiotics)
	}
	r.boldLine(r.label("antibiotics_last_2_weeks"), antibioticsLine)

	anticoagLine := fmt.Sprintf("%s %s  %s %s", check(ct.Anticoagulants), r.yes(), check(!ct.Anticoagulants), r.no())
	if ct.Anticoagulants {
		if ct.AnticoagulantDrug != "" {
			anticoagLine += fmt.Sprintf("  %s: %s", r.label("drug_and_dose"), ct.AnticoagulantDrug)
		}
		if ct.AnticoagulantINR != "" {
			anticoagLine += fmt.Sprintf("  INR: %s", ct.AnticoagulantINR)
		}
	}
	r.boldLine(r.label("anticoagulants"), anticoagLine)

	bisLine := fmt.Sprintf("%s %s  %s %s", check(ct.Bisphosphonates), r.yes(), check(!ct.Bisphosphonates), r.no())
	if ct.Bisphosphonates {
		bisLine += fmt.Sprintf("  %s: %s i.v. %s %s",
			r.label("route_label"),
			check(ct.BisphosphonateRoute == "iv"),
			check(ct.BisphosphonateRoute == "oral"), r.label("bisphosphonate_oral"))
		if ct.BisphosphonateDuration != "" {
			bisLine += fmt.Sprintf("  %s: %s", r.label("bisphosphonate_duration"), ct.BisphosphonateDuration)
		}
		if ct.BisphosphonateBetaCTX != "" {
			bisLine += fmt.Sprintf("  beta-CTX: %s", ct.BisphosphonateBetaCTX)
		}
	}
	r.boldLine(r.label("bisphosphonates"), bisLine)
}

func (r *renderer) identityRow(label, value string) {
	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.SetFillColor(240, 240, 240)
	r.pdf.CellFormat(54, 7, r.tr(label), "1", 0, "L", true, 0, "")
	r.pdf.SetFont("Helvetica", "", 9)
	r.pdf.CellFormat(0, 7, r.tr(value), "1", 1, "L", false, 0, "")
}

// -- page 2 --

type diseaseFlag struct {
	key       string
	set       bool
	qualifier string
}

func (r *renderer) pageDiseases(v *Version) {
	r.pdf.AddPage()
	r.pageHeader()

	d := v.FormData.Diseases
	if d == nil {
		d = &Diseases{}
	}

	r.sectionTitle(4, "section_4")
	r.boldLine(r.label("congenital_diseases"), orDash(d.CongenitalDiseases))
	r.boldLine(r.label("occupational_diseases"), orDash(d.OccupationalDiseases))
	r.pdf.Ln(1)

	heart := d.Heart
	if heart == nil {
		heart = &HeartDisease{}
	}
	r.diseaseCategory("diseases_heart", []diseaseFlag{
		{key: "heart_angina_pectoris", set: heart.AnginaPectoris},
		{key: "heart_myocardial_infarction", set: heart.MyocardialInfarction,
			qualifier: qualifierIf(heart.MyocardialInfarction, r.label("when_label"), orDash(heart.MyocardialInfarctionWhen))},
		{key: "heart_arrhythmias", set: heart.Arrhythmias},
		{key: "heart_blocks", set: heart.Blocks},
		{key: "heart_failure", set: heart.Failure,
			qualifier: qualifierIf(heart.Failure && heart.FailureNYHA != "", "NYHA", heart.FailureNYHA)},
		{key: "heart_valvulopathies", set: heart.Valvulopathies},
		{key: "heart_endocarditis", set: heart.Endocarditis},
		{key: "heart_cardiac_surgery", set: heart.CardiacSurgery},
	})

	vasc := d.Vascular
	if vasc == nil {
		vasc = &VascularDisease{}
	}
	r.diseaseCategory("diseases_vascular", []diseaseFlag{
		{key: "vascular_peripheral_arterial_disease", set: vasc.PeripheralArterialDisease},
		{key: "vascular_thrombophlebitis", set: vasc.Thrombophlebitis},
		{key: "vascular_hypotension", set: vasc.Hypotension},
		{key: "vascular_hypertension", set: vasc.Hypertension,
			qualifier: qualifierIf(vasc.Hypertension && vasc.HypertensionMax != "", "Max", vasc.HypertensionMax)},
		{key: "vascular_stroke", set: vasc.Stroke},
	})

	resp := d.Respiratory
	if resp == nil {
		resp = &Respiratory{}
	}
	r.diseaseCategory("diseases_respiratory", []diseaseFlag{
		{key: "respiratory_asthma", set: resp.Asthma},
		{key: "respiratory_emphysema", set: resp.Emphysema},
		{key: "respiratory_chronic_bronchitis", set: resp.ChronicBronchitis},
		{key: "respiratory_tuberculosis", set: resp.Tuberculosis},
	})

	dig := d.Digestive
	if dig == nil {
		dig = &Digestive{}
	}
	r.diseaseCategory("diseases_digestive", []diseaseFlag{
		{key: "digestive_gastritis_ulcer", set: dig.GastritisUlcer},
	})

	hep := d.Hepatic
	if hep == nil {
		hep = &Hepatic{}
	}
	r.diseaseCategory("diseases_hepatic", []diseaseFlag{
		{key: "hepatic_steatosis", set: hep.Steatosis},
		{key: "hepatic_chronic_hepatitis", set: hep.ChronicHepatitis},
		{key: "hepatic_cirrhosis", set: hep.Cirrhosis},
	})

	ren := d.Renal
	if ren == nil {
		ren = &Renal{}
	}
	r.diseaseCategory("diseases_renal", []diseaseFlag{
		{key: "renal_insufficiency", set: ren.Insufficiency},
		{key: "renal_hemodialysis", set: ren.Hemodialysis},
	})

	dia := d.Diabetes
	if dia == nil {
		dia = &Diabetes{}
	}
	r.diseaseCategory("diseases_diabetes", []diseaseFlag{
		{key: "diabetes_insulin", set: dia.Insulin},
		{key: "diabetes_oral", set: dia.Oral},
	})

	end := d.Endocrine
	if end == nil {
		end = &Endocrine{}
	}
	r.diseaseCategory("diseases_endocrine", []diseaseFlag{
		{key: "endocrine_hypothyroidism", set: end.Hypothyroidism},
		{key: "endocrine_hyperthyroidism", set: end.Hyperthyroidism},
	})

	rhe := d.Rheumatic
	if rhe == nil {
		rhe = &Rheumatic{}
	}
	r.diseaseCategory("diseases_rheumatic", []diseaseFlag{
		{key: "rheumatic_rheumatoid_arthritis", set: rhe.RheumatoidArthritis},
		{key: "rheumatic_collagenoses", set: rhe.Collagenoses},
	})

	ske := d.Skeletal
	if ske == nil {
		ske = &Skeletal{}
	}
	r.diseaseCategory("diseases_skeletal", []diseaseFlag{
		{key: "skeletal_osteoporosis", set: ske.Osteoporosis},
	})

	neu := d.Neurological
	if neu == nil {
		neu = &Neurological{}
	}
	r.diseaseCategory("diseases_neurological", []diseaseFlag{
		{key: "neurological_epilepsy", set: neu.Epilepsy},
	})

	psy := d.Psychiatric
	if psy == nil {
		psy = &Psychiatric{}
	}
	r.diseaseCategory("diseases_psychiatric", []diseaseFlag{
		{key: "psychiatric_depression", set: psy.Depression},
		{key: "psychiatric_schizophrenia", set: psy.Schizophrenia},
	})

	nv := d.Neurovegetative
	if nv == nil {
		nv = &Neurovegetative{}
	}
	r.diseaseCategory("diseases_neurovegetative", []diseaseFlag{
		{key: "neurovegetative_panic_attacks", set: nv.PanicAttacks},
	})

	hem := d.Hematologic
	if hem == nil {
		hem = &Hematologic{}
	}
	r.diseaseCategory("diseases_hematologic", []diseaseFlag{
		{key: "hematologic_anemia", set: hem.Anemia},
		{key: "hematologic_thalassemia", set: hem.Thalassemia},
		{key: "hematologic_leukemia", set: hem.Leukemia},
		{key: "hematologic_hemophilia", set: hem.Hemophilia},
		{key: "hematologic_thrombocytopenia", set: hem.Thrombocytopenia},
		{key: "hematologic_von_willebrand", set: hem.VonWillebrand},
	})

	inf := d.Infectious
	if inf == nil {
		inf = &Infectious{}
	}
	r.diseaseCategory("diseases_infectious", []diseaseFlag{
		{key: "infectious_hepatitis_b", set: inf.HepatitisB},
		{key: "infectious_hepatitis_c", set: inf.HepatitisC},
		{key: "infectious_hepatitis_d", set: inf.HepatitisD},
		{key: "infectious_hiv", set: inf.HIV},
	})

	neoLine := fmt.Sprintf("%s %s  %s %s", check(d.Neoplasms), r.yes(), check(!d.Neoplasms), r.no())
	if d.Neoplasms {
		neoLine += "  " + orDash(d.NeoplasmsDetails)
	}
	r.boldLine(r.label("diseases_neoplasms"), neoLine)

	otherLine := fmt.Sprintf("%s %s  %s %s", check(d.OtherDiseases), r.yes(), check(!d.OtherDiseases), r.no())
	if d.OtherDiseases {
		otherLine += "  " + orDash(d.OtherDiseasesDetails)
	}
	r.boldLine(r.label("diseases_other"), otherLine)
}

func qualifierIf(cond bool, label, value string) string {
	if !cond {
		return ""
	}
	return fmt.Sprintf("(%s: %s)", label, value)
}

func (r *renderer) diseaseCategory(labelKey string, flags []diseaseFlag) {
	var parts []string
	for _, f := range flags {
		part := check(f.set) + " " + r.label(f.key)
		if f.qualifier != "" {
			part += " " + f.qualifier
		}
		parts = append(parts, part)
	}

	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.CellFormat(0, 5, r.tr(r.label(labelKey)+":"), "", 1, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 8.5)
	r.pdf.MultiCell(0, 4.5, r.tr(strings.Join(parts, "   ")), "", "L", false)
	r.pdf.Ln(1)
}

// -- page 3 --

func (r *renderer) pageHistoriesAndConsent(p *patient.Patient, v *Version) {
	r.pdf.AddPage()
	r.pageHeader()

	sh := v.FormData.SurgicalHistory
	if sh == nil {
		sh = &SurgicalHistory{}
	}
	r.sectionTitle(5, "section_5")
	r.boldLine(r.label("previous_surgeries"), orDash(sh.PreviousSurgeries))
	r.boldLine(r.label("transfusions"),
		fmt.Sprintf("%s %s  %s %s", check(sh.Transfusions), r.yes(), check(!sh.Transfusions), r.no()))
	r.boldLine(r.label("surgery_complications"), orDash(sh.Complications))

	dh := v.FormData.DentalHistory
	if dh == nil {
		dh = &DentalHistory{}
	}
	at := dh.AnesthesiaTypes
	if at == nil {
		at = &AnesthesiaTypes{}
	}
	r.sectionTitle(6, "section_6")
	r.boldLine(r.label("dental_anesthesia_types"), fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		check(at.Local), r.label("anesthesia_local"),
		check(at.Plexal), r.label("anesthesia_plexal"),
		check(at.Troncular), r.label("anesthesia_troncular"),
		check(at.General), r.label("anesthesia_general")))
	r.boldLine(r.label("adverse_reactions"), orDash(dh.AdverseReactions))

	hab := v.FormData.Habits
	if hab == nil {
		hab = &Habits{}
	}
	r.sectionTitle(7, "section_7")
	r.habitLine("tobacco", hab.Tobacco, hab.TobaccoAmount, hab.TobaccoDuration, "tobacco_amount", "tobacco_duration")
	r.habitLine("alcohol", hab.Alcohol, hab.AlcoholAmount, hab.AlcoholDuration, "alcohol_amount", "alcohol_duration")
	r.habitLine("drugs", hab.Drugs, hab.DrugsAmount, hab.DrugsDuration, "drugs_amount", "drugs_duration")

	r.consentBox(v)
	r.signatureBlock(p, v)

	r.pdf.Ln(6)
	r.pdf.SetFont("Helvetica", "I", 7)
	r.pdf.SetTextColor(102, 102, 102)
	r.pdf.CellFormat(0, 4, r.tr(r.label("pdf_footer")), "T", 1, "C", false, 0, "")
	r.pdf.SetTextColor(26, 26, 26)
}

func (r *renderer) habitLine(labelKey string, set bool, amount, duration, amountKey, durationKey string) {
	line := fmt.Sprintf("%s %s  %s %s", check(set), r.yes(), check(!set), r.no())
	if set {
		line += fmt.Sprintf("  %s: %s  %s: %s",
			r.label(amountKey), orDash(amount), r.label(durationKey), orDash(duration))
	}
	r.boldLine(r.label(labelKey), line)
}

func (r *renderer) consentBox(v *Version) {
	r.pdf.Ln(4)
	x, y := r.pdf.GetXY()
	pageW, _ := r.pdf.GetPageSize()
	boxW := pageW - 30

	r.pdf.SetXY(x+3, y+3)
	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.MultiCell(boxW-6, 5, r.tr(r.label("consent_title")), "", "L", false)
	r.pdf.SetX(x + 3)
	r.pdf.SetFont("Helvetica", "", 8)
	r.pdf.MultiCell(boxW-6, 4, r.tr(r.label("consent_text")), "", "L", false)
	r.pdf.SetX(x + 3)
	r.pdf.SetFont("Helvetica", "", 9)
	r.pdf.MultiCell(boxW-6, 5, r.tr(check(v.ConsentGiven)+" "+r.label("consent_agree")), "", "L", false)

	_, endY := r.pdf.GetXY()
	r.pdf.Rect(x, y, boxW, endY-y+3, "D")
	r.pdf.SetY(endY + 5)
}

func (r *renderer) signatureBlock(p *patient.Patient, v *Version) {
	pageW, _ := r.pdf.GetPageSize()
	colW := (pageW - 30) / 2

	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.SetFillColor(240, 240, 240)
	r.pdf.CellFormat(colW, 7, r.tr(r.label("dentist_label")), "1", 0, "C", true, 0, "")
	r.pdf.CellFormat(colW, 7, r.tr(r.label("patient_label")), "1", 1, "C", true, 0, "")

	r.pdf.SetFont("Helvetica", "", 9)
	x, y := r.pdf.GetXY()
	rowH := 22.0

	// Clinician side stays a blank line for ink.
	r.pdf.Rect(x, y, colW, rowH, "D")
	r.pdf.SetXY(x+2, y+2)
	r.pdf.CellFormat(colW-4, 5, r.tr(r.label("signature_label")+":"), "", 0, "L", false, 0, "")
	r.pdf.Line(x+2, y+rowH-4, x+colW-2, y+rowH-4)

	// Patient side embeds the stored signature image when one parses.
	r.pdf.Rect(x+colW, y, colW, rowH, "D")
	r.pdf.SetXY(x+colW+2, y+2)
	r.pdf.CellFormat(colW-4, 5, r.tr(r.label("consent_signature")+":"), "", 0, "L", false, 0, "")
	if !r.embedSignature(v.SignatureData, x+colW+2, y+8, colW-4, rowH-10) {
		r.pdf.Line(x+colW+2, y+rowH-4, x+2*colW-2, y+rowH-4)
	}

	r.pdf.SetXY(x, y+rowH)
	r.pdf.CellFormat(colW, 7, r.tr(r.label("name_label")+": "+placeholder), "1", 0, "L", false, 0, "")
	r.pdf.CellFormat(colW, 7, r.tr(r.label("name_label")+": "+p.FullName()), "1", 1, "L", false, 0, "")

	consentDate := v.CreatedAt
	if v.ConsentGivenAt != nil {
		consentDate = *v.ConsentGivenAt
	}
	r.pdf.CellFormat(colW, 7, r.tr(r.label("consent_date")+": "+placeholder), "1", 0, "L", false, 0, "")
	r.pdf.CellFormat(colW, 7, r.tr(r.label("consent_date")+": "+consentDate.UTC().Format("02/01/2006 15:04")), "1", 1, "L", false, 0, "")
}

// embedSignature draws a data-URI signature image and reports whether it
// succeeded. Unparseable data falls back to the blank line.
func (r *renderer) embedSignature(data *string, x, y, maxW, maxH float64) bool {
	if data == nil {
		return false
	}
	format, raw, ok := decodeDataURI(*data)
	if !ok {
		return false
	}

	name := fmt.Sprintf("sig-%x", len(raw))
	opts := fpdf.ImageOptions{ImageType: format, ReadDpi: false}
	info := r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	if r.pdf.Err() || info == nil {
		r.pdf.ClearError()
		return false
	}

	w := info.Width() * maxH / info.Height()
	h := maxH
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	r.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return !r.pdf.Err()
}

func decodeDataURI(uri string) (format string, data []byte, ok bool) {
	switch {
	case strings.HasPrefix(uri, "data:image/png;base64,"):
		format = "PNG"
		uri = strings.TrimPrefix(uri, "data:image/png;base64,")
	case strings.HasPrefix(uri, "data:image/jpeg;base64,"):
		format = "JPEG"
		uri = strings.TrimPrefix(uri, "data:image/jpeg;base64,")
	default:
		return "", nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(uri)
	if err != nil {
		return "", nil, false
	}
	return format, raw, true
}
