package validatereservation

// Verdict is returned for a draft that fits. Available counts the units the draft may use.
type Verdict struct {
	Date      string
	Quantity  int
	Available int
}
