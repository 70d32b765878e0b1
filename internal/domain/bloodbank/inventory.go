package bloodbank

// Stock levels by units on hand.
const (
	LevelCritical = "Critical"
	LevelLow      = "Low"
	LevelMedium   = "Medium"
	LevelHigh     = "High"
)

func LevelFor(units int) string {
	switch {
	case units < 5:
		return LevelCritical
	case units < 10:
		return LevelLow
	case units < 30:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Inventory is a fixed availability listing.
type Inventory struct {
	stock []Stock
}

func NewInventory(stock []Stock) *Inventory {
	out := make([]Stock, len(stock))
	for i, s := range stock {
		s.Level = LevelFor(s.Units)
		out[i] = s
	}
	return &Inventory{stock: out}
}

func DefaultInventory() *Inventory {
	return NewInventory([]Stock{
		{BloodType: "A+", Hospital: "City General Hospital", Units: 45},
		{BloodType: "O-", Hospital: "District Emergency Center", Units: 8},
		{BloodType: "B+", Hospital: "City General Hospital", Units: 22},
		{BloodType: "AB+", Hospital: "Central Blood Bank", Units: 15},
		{BloodType: "A-", Hospital: "District Emergency Center", Units: 3},
		{BloodType: "O+", Hospital: "Central Blood Bank", Units: 60},
	})
}

// Availability returns the stock of bloodType, or everything when it is empty.
func (inv *Inventory) Availability(bloodType string) []Stock {
	out := []Stock{}
	for _, s := range inv.stock {
		if bloodType == "" || s.BloodType == bloodType {
			out = append(out, s)
		}
	}
	return out
}
