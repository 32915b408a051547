package risk

// Policy is the account-level constraint set a strategy runs under.
type Policy struct {
	// NoLeverage forbids cash below zero after an instruction.
	NoLeverage bool
	// NoShortSpot forbids a negative spot holding.
	NoShortSpot bool
}

// Strict is the default for every option-selling strategy: no borrowing
// and no naked short spot.
func Strict() Policy {
	return Policy{NoLeverage: true, NoShortSpot: true}
}

// Projection is the account as it would be after an instruction is applied.
type Projection struct {
	Cash    float64
	SpotQty float64
}
