package wizard

import (
	"strings"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/models"
)

const (
	msgSelectPlan     = "Silakan pilih paket terlebih dahulu."
	msgCompleteForm   = "Mohon lengkapi data berikut: "
	msgPlanNotOffered = "Paket yang dipilih tidak tersedia. Silakan pilih ulang paket."
)

// ValidationError reports a gate that refused to let the wizard leave Step.
// Message is meant for the customer.
type ValidationError struct {
	Step    Step
	Missing []Field
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Has reports whether f is among the missing fields.
func (e *ValidationError) Has(f Field) bool {
	for _, m := range e.Missing {
		if m == f {
			return true
		}
	}
	return false
}

// Gate evaluates the condition for leaving step against rec. It returns nil
// when the gate passes. SUCCESS has no gate.
func Gate(step Step, rec models.RegistrationRecord, c *catalog.Catalog) *ValidationError {
	switch step {
	case StepPlanSelection:
		if rec.SelectedPlanID == "" {
			return &ValidationError{Step: step, Missing: []Field{FieldPlan}, Message: msgSelectPlan}
		}
		return nil

	case StepPersonalDetails:
		if missing := missingDetails(rec); len(missing) > 0 {
			return &ValidationError{Step: step, Missing: missing, Message: completeFormMessage(missing)}
		}
		return nil

	case StepConfirmation:
		missing := missingDetails(rec)
		planValid := rec.SelectedPlanID != "" && c.Contains(rec.SelectedPlanID)
		if !planValid {
			missing = append([]Field{FieldPlan}, missing...)
		}
		switch {
		case len(missing) == 0:
			return nil
		case !planValid && len(missing) == 1:
			return &ValidationError{Step: step, Missing: missing, Message: msgPlanNotOffered}
		default:
			return &ValidationError{Step: step, Missing: missing, Message: completeFormMessage(missing)}
		}
	}
	return nil
}

func missingDetails(rec models.RegistrationRecord) []Field {
	var missing []Field
	required := []struct {
		field Field
		value string
	}{
		{FieldFullName, rec.FullName},
		{FieldNationalID, rec.NationalID},
		{FieldEmail, rec.Email},
		{FieldPhone, rec.Phone},
		{FieldInstallAddress, rec.InstallAddress},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	if !rec.HasPhoto() {
		missing = append(missing, FieldHousePhoto)
	}
	return missing
}

func completeFormMessage(missing []Field) string {
	labels := make([]string, len(missing))
	for i, f := range missing {
		labels[i] = f.Label()
	}
	return msgCompleteForm + strings.Join(labels, ", ") + "."
}
