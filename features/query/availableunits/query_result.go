package availableunits

// AvailableUnits is the capacity of one day.
type AvailableUnits struct {
	Date      string
	Available int
}
