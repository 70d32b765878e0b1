package bloodbank

import "fmt"

const StatusPending = "Pending"

// BloodTypes lists the accepted ABO/Rh groups.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func validBloodType(t string) bool {
	for _, bt := range BloodTypes {
		if bt == t {
			return true
		}
	}
	return false
}

type BloodRequest struct {
	ID             string `json:"id"`
	BloodType      string `json:"bloodType"`
	Quantity       int    `json:"quantity"`
	Hospital       string `json:"hospital"`
	PatientDetails string `json:"patientDetails,omitempty"`
	Status         string `json:"status"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

func (r BloodRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("blood request id is required")
	}
	if !validBloodType(r.BloodType) {
		return fmt.Errorf("blood request %s has invalid blood type %q", r.ID, r.BloodType)
	}
	if r.Quantity < MinUnits || r.Quantity > MaxUnits {
		return fmt.Errorf("blood request %s has invalid quantity %d", r.ID, r.Quantity)
	}
	return nil
}

type SubmitRequest struct {
	BloodType      string `json:"bloodType"`
	Quantity       int    `json:"quantity"`
	Hospital       string `json:"hospital"`
	PatientDetails string `json:"patientDetails"`
}

// Stock is the units of one blood type held at one hospital.
type Stock struct {
	BloodType string `json:"type"`
	Hospital  string `json:"hospital"`
	Units     int    `json:"quantity"`
	Level     string `json:"status"`
}
