package domain

import (
	"math"

	"github.com/DRSN-tech/product-matcher/pkg/e"
)

// normTolerance — допуск, в пределах которого вектор считается единичным.
const normTolerance = 1e-6

// Norm возвращает евклидову норму вектора.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	return math.Sqrt(sum)
}

// Normalize возвращает новый вектор той же длины с единичной евклидовой нормой.
// Нулевой или пустой вектор нормализовать нельзя: возвращается e.ErrDegenerateVector.
func Normalize(v []float32) ([]float32, error) {
	norm := Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, e.ErrDegenerateVector
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}

	return out, nil
}

// IsNormalized сообщает, имеет ли вектор единичную норму.
func IsNormalized(v []float32) bool {
	return math.Abs(Norm(v)-1) <= normTolerance
}

// CheckDimension проверяет, что длина вектора равна dim.
func CheckDimension(v []float32, dim int) error {
	if len(v) != dim {
		return e.ErrDimensionMismatch
	}

	return nil
}

// CosineSimilarity считает косинусное сходство по полной формуле dot/(|a||b|),
// поэтому корректно работает и для исторически не нормализованных векторов.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, e.ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, e.ErrDegenerateVector
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// SimilarityFromCosineDistance переводит косинусное расстояние в сходство 1 - d.
// Результат ограничивается диапазоном [0, 1], на который рассчитаны пороги уверенности.
func SimilarityFromCosineDistance(d float64) float64 {
	return ClampSimilarity(1 - d)
}

// ClampSimilarity ограничивает сходство диапазоном [0, 1].
func ClampSimilarity(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return 0
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
