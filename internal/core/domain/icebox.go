package domain

import "time"

// CalculationStatus tracks an icebox calculation through layer processing.
type CalculationStatus string

const (
	CalculationCreated    CalculationStatus = "created"
	CalculationProcessing CalculationStatus = "processing"
	CalculationComplete   CalculationStatus = "complete"
	CalculationFailed     CalculationStatus = "failed"
)

// Calculation is an engine calculation whose output layers are imported
// into the platform.
type Calculation struct {
	ID              int64             `json:"id"`
	CalculationType string            `json:"calculation_type"`
	Status          CalculationStatus `json:"status"`
	OwnerEmail      string            `json:"owner_email,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ArtifactGroup is a named set of artifacts produced by a calculation.
type ArtifactGroup struct {
	ID            int64      `json:"id"`
	CalculationID int64      `json:"calculation_id"`
	Name          string     `json:"name"`
	Artifacts     []Artifact `json:"artifacts"`
}

// Artifact is a single output layer.
type Artifact struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CalculationEvent is published on calculation state changes.
type CalculationEvent struct {
	CalculationID int64             `json:"calculation_id"`
	Status        CalculationStatus `json:"status"`
	Time          time.Time         `json:"time"`
}

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// NewCalculation is the payload accepted when a calculation is registered.
type NewCalculation struct {
	CalculationType string `json:"calculation_type" form:"calculation_type" validate:"required,max=50"`
	OwnerEmail      string `json:"owner_email,omitempty" form:"owner_email" validate:"omitempty,email"`
}

// CalculationStatuses lists every valid status.
var CalculationStatuses = []CalculationStatus{
	CalculationCreated, CalculationProcessing, CalculationComplete, CalculationFailed,
}

// Valid reports whether s is a known status.
func (s CalculationStatus) Valid() bool {
	for _, v := range CalculationStatuses {
		if v == s {
			return true
		}
	}
	return false
}
