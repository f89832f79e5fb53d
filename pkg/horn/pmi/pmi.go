package pmi

import "math"

// Config controls neighbor scoring.
type Config struct {
	Epsilon float64 // smoothing constant
	MinDF   int64   // neighbors below this document frequency are skipped
	UseNPMI bool    // normalize scores into [-1, 1]
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{Epsilon: 1.0, MinDF: 2}
}

// Calculator handles PMI (Pointwise Mutual Information) calculations
type Calculator struct {
	epsilon float64 // smoothing constant
}

// NewCalculator creates a new PMI calculator with the given epsilon
func NewCalculator(epsilon float64) *Calculator {
	if epsilon <= 0 {
		epsilon = 1.0
	}
	return &Calculator{epsilon: epsilon}
}

// NewCalculatorFromConfig creates a calculator using the config's epsilon.
func NewCalculatorFromConfig(c Config) *Calculator {
	return NewCalculator(c.Epsilon)
}

// PMI calculates the pointwise mutual information between two tokens
//
// PMI(a,b) = log((N_ab + ε) * N / ((N_a + ε)(N_b + ε)))
//
// Where:
//   - N_ab = number of descriptions containing both a and b
//   - N_a, N_b = number of descriptions containing each token
//   - N = total number of descriptions
//   - ε = smoothing constant (default 1.0)
func (c *Calculator) PMI(nAB, nA, nB, N int64) float64 {
	if N == 0 {
		return 0
	}

	numerator := (float64(nAB) + c.epsilon) * float64(N)
	denominator := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)

	if denominator == 0 {
		return 0
	}

	return math.Log(numerator / denominator)
}

// NPMI calculates normalized PMI (range: -1 to 1)
// NPMI(a,b) = PMI(a,b) / -log(P(a,b))
func (c *Calculator) NPMI(nAB, nA, nB, N int64) float64 {
	if N == 0 || nAB == 0 {
		return 0
	}

	pmi := c.PMI(nAB, nA, nB, N)
	pAB := (float64(nAB) + c.epsilon) / float64(N)
	logPAB := math.Log(pAB)

	if logPAB == 0 {
		return 0
	}

	return pmi / -logPAB
}

// Score computes PMI or NPMI according to useNPMI.
func (c *Calculator) Score(nAB, nA, nB, N int64, useNPMI bool) float64 {
	if useNPMI {
		return c.NPMI(nAB, nA, nB, N)
	}
	return c.PMI(nAB, nA, nB, N)
}
