package models

import "time"

// Registration statuses recorded on the Firestore document.
const (
	StatusSubmitted        = "SUBMITTED"
	StatusDocumentUploaded = "DOCUMENT_UPLOADED"
	StatusScheduling       = "SCHEDULING" // workflow trigger in progress
	StatusReady            = "READY"
	StatusFailed           = "FAILED"
)

// Registration is the Firestore record of a submitted registration.
// The document id is the registration id.
type Registration struct {
	RegistrationID       string     `firestore:"registrationId,omitempty"`
	Status               string     `firestore:"status,omitempty"`
	ErrorDetails         string     `firestore:"errorDetails,omitempty"`
	PlanID               string     `firestore:"planId,omitempty"`
	PlanName             string     `firestore:"planName,omitempty"`
	MonthlyPrice         int64      `firestore:"monthlyPrice"`
	FullName             string     `firestore:"fullName,omitempty"`
	NationalID           string     `firestore:"nationalId,omitempty"`
	Email                string     `firestore:"email,omitempty"`
	Phone                string     `firestore:"phone,omitempty"`
	InstallAddress       string     `firestore:"installAddress,omitempty"`
	PreferredInstallDate *time.Time `firestore:"preferredInstallDate,omitempty"`
	HousePhotoURI        string     `firestore:"housePhotoUri,omitempty"`
	DocumentURI          string     `firestore:"documentUri,omitempty"`
	PageCount            int        `firestore:"pageCount,omitempty"`
	WorkflowExecutionID  string     `firestore:"workflowExecutionId,omitempty"`
	CreatedAt            time.Time  `firestore:"createdAt,omitempty"`
}
