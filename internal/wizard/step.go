package wizard

import "fmt"

// Step is a screen of the registration wizard. Steps are strictly ordered.
type Step int

const (
	StepPlanSelection   Step = iota // choose a plan, optionally via recommendation
	StepPersonalDetails             // customer details and house photo
	StepConfirmation                // read-only summary, submit from here
	StepSuccess                     // terminal; registration id assigned
)

func (s Step) String() string {
	switch s {
	case StepPlanSelection:
		return "PLAN_SELECTION"
	case StepPersonalDetails:
		return "PERSONAL_DETAILS"
	case StepConfirmation:
		return "CONFIRMATION"
	case StepSuccess:
		return "SUCCESS"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Title is the short heading shown for the step.
func (s Step) Title() string {
	switch s {
	case StepPlanSelection:
		return "Pilih Paket"
	case StepPersonalDetails:
		return "Data Diri"
	case StepConfirmation:
		return "Konfirmasi"
	case StepSuccess:
		return "Selesai"
	default:
		return s.String()
	}
}

// Field names a required part of the registration record.
type Field string

const (
	FieldPlan           Field = "selectedPlanId"
	FieldFullName       Field = "fullName"
	FieldNationalID     Field = "nationalId"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldInstallAddress Field = "installAddress"
	FieldHousePhoto     Field = "housePhoto"
)

// Label is the form label of the field.
func (f Field) Label() string {
	switch f {
	case FieldPlan:
		return "Paket"
	case FieldFullName:
		return "Nama Lengkap"
	case FieldNationalID:
		return "NIK"
	case FieldEmail:
		return "Email"
	case FieldPhone:
		return "No. WhatsApp"
	case FieldInstallAddress:
		return "Alamat Pemasangan"
	case FieldHousePhoto:
		return "Foto Rumah"
	default:
		return string(f)
	}
}
