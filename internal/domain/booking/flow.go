package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Step is a state of the booking flow. Steps are visited in order.
type Step int

const (
	StepDepartment Step = iota + 1
	StepSpecialist
	StepDate
	StepDoctor
	StepTime
)

var stepNames = map[Step]string{
	StepDepartment: "department",
	StepSpecialist: "specialist",
	StepDate:       "date",
	StepDoctor:     "doctor",
	StepTime:       "time",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// InputDateLayout is the format of the date chosen at StepDate.
const InputDateLayout = "2006-01-02"

var (
	ErrStepIncomplete    = errors.New("Please complete this step before continuing")
	ErrFirstStep         = errors.New("Already at the first step")
	ErrLastStep          = errors.New("Already at the final step")
	ErrIncompleteBooking = errors.New("Please select doctor, date and time")
	ErrUnknownDepartment = errors.New("Please select a valid department")
	ErrUnknownSpecialist = errors.New("Please select a valid specialist level")
	ErrInvalidDate       = errors.New("Please select a valid date")
	ErrPastDate          = errors.New("Please select a date that is not in the past")
	ErrUnavailableDoctor = errors.New("Selected doctor is not available for this department and specialist level")
	ErrUnavailableSlot   = errors.New("Selected time slot is not available for this doctor")
	ErrSelectionRequired = errors.New("Please select a value")
)

// Flow is the five-step booking form of one patient. A Flow is not safe for
// concurrent use; Registry serializes access.
type Flow struct {
	ID      string
	step    Step
	sel     Selection
	catalog *Catalog
	now     func() time.Time
	// busy is set while the flow's appointment is being stored.
	busy bool
}

func NewFlow(catalog *Catalog, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	return &Flow{ID: uuid.New().String(), step: StepDepartment, catalog: catalog, now: now}
}

func (f *Flow) Step() Step           { return f.step }
func (f *Flow) Selection() Selection { return f.sel }

// Select sets the current step's field. Changing a value clears every later
// step, since those choices depended on it.
func (f *Flow) Select(value string) error {
	if value == "" {
		return ErrSelectionRequired
	}
	if err := f.validate(f.step, value); err != nil {
		return err
	}
	if f.field(f.step) == value {
		return nil
	}
	f.set(f.step, value)
	for s := f.step + 1; s <= StepTime; s++ {
		f.set(s, "")
	}
	return nil
}

func (f *Flow) validate(step Step, value string) error {
	switch step {
	case StepDepartment:
		if _, ok := f.catalog.Department(value); !ok {
			return ErrUnknownDepartment
		}
	case StepSpecialist:
		if !f.catalog.HasLevel(value) {
			return ErrUnknownSpecialist
		}
	case StepDate:
		d, err := time.ParseInLocation(InputDateLayout, value, f.now().Location())
		if err != nil {
			return ErrInvalidDate
		}
		y, m, day := f.now().Date()
		today := time.Date(y, m, day, 0, 0, 0, 0, f.now().Location())
		if d.Before(today) {
			return ErrPastDate
		}
	case StepDoctor:
		for _, d := range f.catalog.DoctorsFor(f.sel.Department, f.sel.Specialist) {
			if d.Name == value {
				return nil
			}
		}
		return ErrUnavailableDoctor
	case StepTime:
		d, ok := f.catalog.Doctor(f.sel.Doctor)
		if !ok || !d.HasSlot(value) {
			return ErrUnavailableSlot
		}
	}
	return nil
}

func (f *Flow) field(step Step) string {
	switch step {
	case StepDepartment:
		return f.sel.Department
	case StepSpecialist:
		return f.sel.Specialist
	case StepDate:
		return f.sel.Date
	case StepDoctor:
		return f.sel.Doctor
	case StepTime:
		return f.sel.Time
	}
	return ""
}

func (f *Flow) set(step Step, value string) {
	switch step {
	case StepDepartment:
		f.sel.Department = value
	case StepSpecialist:
		f.sel.Specialist = value
	case StepDate:
		f.sel.Date = value
	case StepDoctor:
		f.sel.Doctor = value
	case StepTime:
		f.sel.Time = value
	}
}

// CanAdvance reports whether the current step's required field is set.
func (f *Flow) CanAdvance() bool {
	return f.field(f.step) != ""
}

func (f *Flow) CanGoBack() bool {
	return f.step > StepDepartment
}

func (f *Flow) Next() error {
	if !f.CanAdvance() {
		return ErrStepIncomplete
	}
	if f.step == StepTime {
		return ErrLastStep
	}
	f.step++
	return nil
}

func (f *Flow) Back() error {
	if !f.CanGoBack() {
		return ErrFirstStep
	}
	f.step--
	return nil
}

// Confirm builds the appointment for the current selection. It does not
// change the flow; callers Reset after the appointment is stored.
func (f *Flow) Confirm() (Appointment, error) {
	if f.sel.Doctor == "" || f.sel.Date == "" || f.sel.Time == "" {
		return Appointment{}, ErrIncompleteBooking
	}
	d, err := time.Parse(InputDateLayout, f.sel.Date)
	if err != nil {
		return Appointment{}, ErrInvalidDate
	}
	department := f.sel.Department
	if dept, ok := f.catalog.Department(department); ok {
		department = dept.Name
	}
	return Appointment{
		ID:         uuid.New().String(),
		DoctorName: f.sel.Doctor,
		Department: department,
		Date:       d.Format(DateLayout),
		Time:       f.sel.Time,
		Status:     StatusConfirmed,
	}, nil
}

// Reset returns the flow to the first step with nothing selected.
func (f *Flow) Reset() {
	f.step = StepDepartment
	f.sel = Selection{}
}

// FlowState is the externally visible state of a Flow.
type FlowState struct {
	ID         string    `json:"id"`
	Step       int       `json:"step"`
	StepName   string    `json:"stepName"`
	Selection  Selection `json:"selection"`
	CanAdvance bool      `json:"canAdvance"`
	CanGoBack  bool      `json:"canGoBack"`
	Options    []string  `json:"options"`
}

func (f *Flow) State() FlowState {
	return FlowState{
		ID:         f.ID,
		Step:       int(f.step),
		StepName:   f.step.String(),
		Selection:  f.sel,
		CanAdvance: f.CanAdvance(),
		CanGoBack:  f.CanGoBack(),
		Options:    f.options(),
	}
}

// options lists the values the current step accepts. The date step accepts
// any date from today on and has no fixed options.
func (f *Flow) options() []string {
	out := []string{}
	switch f.step {
	case StepDepartment:
		for _, d := range f.catalog.Departments {
			out = append(out, d.ID)
		}
	case StepSpecialist:
		for _, l := range f.catalog.Levels {
			out = append(out, l.ID)
		}
	case StepDoctor:
		for _, d := range f.catalog.DoctorsFor(f.sel.Department, f.sel.Specialist) {
			out = append(out, d.Name)
		}
	case StepTime:
		if d, ok := f.catalog.Doctor(f.sel.Doctor); ok {
			out = append(out, d.Slots...)
		}
	}
	return out
}
