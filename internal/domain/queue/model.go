package queue

const (
	StatusNext    = "next"
	StatusWaiting = "waiting"
)

// DefaultMinutesPerPatient is the wait added by each patient ahead.
const DefaultMinutesPerPatient = 5

// Entry is a patient's simulated place in one doctor's queue. Entries are
// derived from stored appointments and never persisted.
type Entry struct {
	DoctorName      string `json:"doctorName"`
	Department      string `json:"department"`
	CurrentPosition int    `json:"currentPosition"`
	EstimatedWait   int    `json:"estimatedWait"`
	Status          string `json:"status"`
}

// Change records one position decrement produced by Advance.
type Change struct {
	DoctorName string `json:"doctorName"`
	From       int    `json:"from"`
	To         int    `json:"to"`
}
