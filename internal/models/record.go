package models

import "time"

// RegistrationRecord is the field bag filled in by the wizard.
type RegistrationRecord struct {
	FullName             string
	NationalID           string
	Email                string
	Phone                string
	InstallAddress       string
	PreferredInstallDate *time.Time
	SelectedPlanID       string // empty until a plan is chosen
	HousePhoto           []byte
}

// HasPhoto reports whether a house photo is attached.
func (r RegistrationRecord) HasPhoto() bool {
	return len(r.HousePhoto) > 0
}

// Clone returns a deep copy so callers never share the photo buffer or date.
func (r RegistrationRecord) Clone() RegistrationRecord {
	if r.HousePhoto != nil {
		r.HousePhoto = append([]byte(nil), r.HousePhoto...)
	}
	if r.PreferredInstallDate != nil {
		d := *r.PreferredInstallDate
		r.PreferredInstallDate = &d
	}
	return r
}

// Recommendation is a plan suggested for a free-text need description.
type Recommendation struct {
	RecommendedPlanID string `json:"recommendedPlanId"`
	Reasoning         string `json:"reasoning"`
}
