package booking

// Specialist levels a patient may ask for.
const (
	LevelAny        = "any"
	LevelSenior     = "senior"
	LevelConsultant = "consultant"
)

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SpecialistLevel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Doctor struct {
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Specialty  string   `json:"specialty"`
	Level      string   `json:"level"`
	Slots      []string `json:"availableSlots"`
}

// HasSlot reports whether slot is one of the doctor's bookable times.
func (d Doctor) HasSlot(slot string) bool {
	for _, s := range d.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Catalog is the fixed set of departments, levels and doctors offered for booking.
type Catalog struct {
	Departments []Department      `json:"departments"`
	Levels      []SpecialistLevel `json:"specialistLevels"`
	Doctors     []Doctor          `json:"doctors"`
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		Departments: []Department{
			{ID: "cardiology", Name: "Cardiology"},
			{ID: "neurology", Name: "Neurology"},
			{ID: "pediatrics", Name: "Pediatrics"},
			{ID: "general", Name: "General Practice"},
		},
		Levels: []SpecialistLevel{
			{ID: LevelAny, Name: "Any Specialist"},
			{ID: LevelSenior, Name: "Senior Doctor"},
			{ID: LevelConsultant, Name: "Consultant"},
		},
		Doctors: []Doctor{
			{Name: "Dr. Elara Vance", Department: "cardiology", Specialty: "Cardiology", Level: LevelConsultant,
				Slots: []string{"09:00 AM", "10:00 AM", "11:00 AM"}},
			{Name: "Dr. Kaelen Rhys", Department: "neurology", Specialty: "Neurology", Level: LevelSenior,
				Slots: []string{"01:00 PM", "02:00 PM", "03:00 PM"}},
			{Name: "Dr. Seraphina Cai", Department: "pediatrics", Specialty: "Pediatrics", Level: LevelConsultant,
				Slots: []string{"10:00 AM", "11:00 AM", "02:00 PM"}},
			{Name: "Dr. Emily Brown", Department: "general", Specialty: "General Practice", Level: LevelSenior,
				Slots: []string{"09:30 AM", "12:00 PM", "04:00 PM"}},
		},
	}
}

func (c *Catalog) Department(id string) (Department, bool) {
	for _, d := range c.Departments {
		if d.ID == id {
			return d, true
		}
	}
	return Department{}, false
}

func (c *Catalog) HasLevel(id string) bool {
	for _, l := range c.Levels {
		if l.ID == id {
			return true
		}
	}
	return false
}

// DoctorsFor lists the doctors of a department at a specialist level. An
// empty department matches every department; LevelAny matches every level.
func (c *Catalog) DoctorsFor(department, level string) []Doctor {
	out := []Doctor{}
	for _, d := range c.Doctors {
		if department != "" && d.Department != department {
			continue
		}
		if level != "" && level != LevelAny && d.Level != level {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *Catalog) Doctor(name string) (Doctor, bool) {
	for _, d := range c.Doctors {
		if d.Name == name {
			return d, true
		}
	}
	return Doctor{}, false
}
