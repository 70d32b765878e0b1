package booking

import "fmt"

const StatusConfirmed = "Confirmed"

// DateLayout is the display format of Appointment.Date.
const DateLayout = "January 2, 2006"

type Appointment struct {
	ID         string `json:"id"`
	DoctorName string `json:"doctorName"`
	Department string `json:"department"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Status     string `json:"status"`
}

func (a Appointment) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("appointment id is required")
	}
	if a.DoctorName == "" {
		return fmt.Errorf("appointment %s has no doctor", a.ID)
	}
	if a.Date == "" || a.Time == "" {
		return fmt.Errorf("appointment %s has no date or time", a.ID)
	}
	return nil
}

// Selection holds the value chosen at each booking step.
type Selection struct {
	Department string `json:"department"`
	Specialist string `json:"specialist"`
	Date       string `json:"date"`
	Doctor     string `json:"doctor"`
	Time       string `json:"time"`
}

// Confirmation is returned when a booking is committed.
type Confirmation struct {
	Appointment Appointment `json:"appointment"`
	Message     string      `json:"message"`
}
