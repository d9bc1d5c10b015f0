package domain

// Confidence — уровень уверенности совпадения
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "very high"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
)

const (
	veryHighThreshold = 0.9
	highThreshold     = 0.8
	mediumThreshold   = 0.6
)

// ConfidenceFor возвращает уровень уверенности для сходства в шкале [0, 1].
// Границы строгие: ровно 0.9 попадает в "high".
func ConfidenceFor(similarity float64) Confidence {
	switch {
	case similarity > veryHighThreshold:
		return ConfidenceVeryHigh
	case similarity > highThreshold:
		return ConfidenceHigh
	case similarity > mediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
