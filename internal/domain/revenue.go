package domain

// Conversion rates, in percent.
const (
	VisitorRate  = 0.1  // share of passing traffic that enters
	PurchaseRate = 90.0 // share of visitors that buy

	daysPerMonth = 30
	daysPerYear  = 365
)

// RevenueProjection is the revenue implied by a day's adjusted traffic.
type RevenueProjection struct {
	Visitors float64
	Buyers   float64
	Daily    float64
	Monthly  float64
	Yearly   float64
}

// ProjectRevenue converts adjusted daily traffic into revenue at the given
// unit price.
func ProjectRevenue(adjustedTraffic, productPrice float64) RevenueProjection {
	visitors := adjustedTraffic * (VisitorRate / 100)
	buyers := visitors * (PurchaseRate / 100)
	daily := buyers * productPrice
	return RevenueProjection{
		Visitors: visitors,
		Buyers:   buyers,
		Daily:    daily,
		Monthly:  daily * daysPerMonth,
		Yearly:   daily * daysPerYear,
	}
}
