package models

// These structs define the JSON payloads for the HTTP functions.

// RecommendPlanRequest is the input for the plan-recommender function.
type RecommendPlanRequest struct {
	Description string `json:"description"`
}

// RecommendPlanResponse is the output of the plan-recommender function.
// Status is "success" or "unavailable"; unavailable is not an HTTP error.
type RecommendPlanResponse struct {
	Status            string `json:"status"`
	RecommendedPlanID string `json:"recommendedPlanId,omitempty"`
	Reasoning         string `json:"reasoning,omitempty"`
	Failure           string `json:"failure,omitempty"`
	Message           string `json:"message,omitempty"`
}

// SubmitRegistrationRequest is the input for the registration-submitter function.
type SubmitRegistrationRequest struct {
	PlanID               string `json:"planId"`
	FullName             string `json:"fullName"`
	NationalID           string `json:"nationalId"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	InstallAddress       string `json:"installAddress"`
	PreferredInstallDate string `json:"preferredInstallDate,omitempty"` // YYYY-MM-DD
	HousePhoto           []byte `json:"housePhoto,omitempty"`           // base64 in JSON
}

// SubmitRegistrationResponse is the output of the registration-submitter function.
type SubmitRegistrationResponse struct {
	Status         string   `json:"status"`
	RegistrationID string   `json:"registrationId,omitempty"`
	Filename       string   `json:"filename,omitempty"`
	DocumentGCSUri string   `json:"documentGcsUri,omitempty"`
	ImageFallback  bool     `json:"imageFallback,omitempty"`
	Step           string   `json:"step,omitempty"`
	Missing        []string `json:"missing,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// SchedulingWorkflowArgument is passed to the installation-scheduling workflow.
type SchedulingWorkflowArgument struct {
	RegistrationID string `json:"registrationId"`
	DocumentGCSUri string `json:"documentGcsUri"`
	PageCount      int    `json:"pageCount"`
}
