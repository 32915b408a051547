package risk

// Flow is one cash/asset movement of an instruction. Cash is signed from the
// account's point of view: premium received is positive.
type Flow struct {
	Cash  float64
	Asset float64
}

// Project applies flows to the current cash and spot holding.
func Project(cash, spotQty float64, flows ...Flow) Projection {
	p := Projection{Cash: cash, SpotQty: spotQty}
	for _, f := range flows {
		p.Cash += f.Cash
		p.SpotQty += f.Asset
	}
	return p
}

// SpotFlow is the flow of trading qty spot at price (qty > 0 buys).
func SpotFlow(qty, price float64) Flow {
	return Flow{Cash: -qty * price, Asset: qty}
}

// PremiumFlow is the flow of opening qty option units at premium
// (qty < 0 sells and receives premium).
func PremiumFlow(qty, premium float64) Flow {
	return Flow{Cash: -qty * premium}
}
