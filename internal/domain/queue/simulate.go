package queue

import (
	"math/rand"

	"github.com/sanjeevni/portal/internal/domain/booking"
)

const maxInitialPosition = 10

// Derive builds one entry per doctor, in the order doctors first appear in
// appts, each at a pseudo-random starting position.
func Derive(appts []booking.Appointment, rng *rand.Rand, minutesPerPatient int) []Entry {
	if minutesPerPatient < 1 {
		minutesPerPatient = DefaultMinutesPerPatient
	}
	seen := make(map[string]bool)
	entries := []Entry{}
	for _, a := range appts {
		if seen[a.DoctorName] {
			continue
		}
		seen[a.DoctorName] = true
		entries = append(entries, newEntry(a.DoctorName, a.Department, 1+rng.Intn(maxInitialPosition), minutesPerPatient))
	}
	return entries
}

func newEntry(doctor, department string, position, minutesPerPatient int) Entry {
	status := StatusWaiting
	if position <= 1 {
		position = 1
		status = StatusNext
	}
	return Entry{
		DoctorName:      doctor,
		Department:      department,
		CurrentPosition: position,
		EstimatedWait:   position * minutesPerPatient,
		Status:          status,
	}
}

// Advance moves every entry ticks places forward without passing position 1.
// It does not modify entries and reports one Change per entry that moved.
func Advance(entries []Entry, ticks, minutesPerPatient int) ([]Entry, []Change) {
	if minutesPerPatient < 1 {
		minutesPerPatient = DefaultMinutesPerPatient
	}
	if ticks < 0 {
		ticks = 0
	}
	out := make([]Entry, len(entries))
	var changes []Change
	for i, e := range entries {
		pos := e.CurrentPosition - ticks
		if pos < 1 {
			pos = 1
		}
		if pos > e.CurrentPosition {
			pos = e.CurrentPosition
		}
		out[i] = newEntry(e.DoctorName, e.Department, pos, minutesPerPatient)
		if pos != e.CurrentPosition {
			changes = append(changes, Change{DoctorName: e.DoctorName, From: e.CurrentPosition, To: pos})
		}
	}
	return out, changes
}
