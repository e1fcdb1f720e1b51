// Package domain models the storefront location estimate: how much a small
// shop at a given site could earn, and how desirable the site is.
//
// # Pipeline
//
// An estimate flows through six stages:
//
//	normalize   land-use percentages are repaired to sum to ~100
//	estimate    screenshot geometry and land use give population and raw traffic
//	weather     traffic is scaled by the current (or sampled) weather
//	junctions   traffic is scaled by the probability of reaching the site
//	revenue     adjusted traffic converts to visitors, buyers, and revenue
//	scoring     revenue, density, and competition give a 1.0–9.5 score
//
// [Engine.ComputeMetrics] runs the stages. Everything ahead of it (vision
// analysis, reverse geocoding, competitor and junction lookups) is supplied by
// collaborators behind small interfaces and assembled by an [Assessment].
//
// # Model constants
//
//	global average density   4000 people/km²
//	average road width       30 m
//	scale error adjustment   1.305 (applied to the screenshot's meters/pixel)
//	visitor rate             0.1% of passing traffic
//	purchase rate            90% of visitors
//
// Junction probabilities: turn (B) 0.5, T-junction (P) 1/3, minor road (JK)
// 0.4, anything else 0.8. Junctions are treated as independent, so a sequence
// multiplies.
//
// Weather coefficients: clear 1.0, cloudy 0.9, light rain 0.85, heavy rain
// 0.6, storm 0.4. Live readings use WMO weather codes; without one, a
// condition is sampled from clear 40%, light rain 30%, heavy rain 15%,
// cloudy 10%, storm 5%.
//
// # Scoring
//
//	profit     = min(3.5 × log10(monthly/1,000,000 + 1), 9.5), 0 when monthly ≤ 0
//	density    = min(populationDensity / 2000, 10)
//	competitor = low 1.0 | medium 0.6 | high 0.3 | other 0.5
//	raw        = 0.5×profit + 0.3×density + 0.2×competitor×10
//	raw       ×= 0.85 when buyers/day < 20
//	score      = clamp(raw, 1.0, 9.5)
//	risk       = 1 − score/12
//
// The constants live in [ScoringConfig] and can be overridden. Risk is a
// monotonic proxy for the score, not a calibrated probability.
//
// # Errors
//
// Bad caller input is a [*ValidationError] (errors.Is [ErrValidation]). A
// NaN or infinite intermediate value is a [*ComputationError] (errors.Is
// [ErrComputation]). Collaborator failures are never errors; they are listed
// in [MetricsResult.Degradations].
package domain
