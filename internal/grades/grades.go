// Package grades holds the letter-grade to quality-points table.
package grades

// points maps letter and status grades to GPA-equivalent quality points.
// Initialized once; never mutated. Codes that carry no grade signal
// (NR, AU, REG, IX, IP) are deliberately absent: Points reports them as
// missing, not zero.
var points = map[string]float64{
	"A+": 4.0,
	"A":  4.0,
	"A-": 3.67,
	"B+": 3.33,
	"B":  3.00,
	"B-": 2.67,
	"C+": 2.33,
	"C":  2.00,
	"C-": 1.67,
	"D":  1.00,
	"F":  0.00,
	"IN": 0.00, // Incomplete
	"S":  3.00, // Satisfactory (passing; C and up, no effect on GPA)
	"NC": 1.00, // No Credit (often C- and below)
	"W":  1.00, // Withdrawal (does not affect grade)
}

// Points returns the quality points for a letter grade. ok is false for
// unknown, unreported, or empty grade codes - those are missing values,
// never zeros.
func Points(grade string) (float64, bool) {
	v, ok := points[grade]
	return v, ok
}

// Nongrades are the status codes that carry no discriminative grade
// signal. They are always stripped from test sets and optionally from
// training sets.
var Nongrades = []string{"W", "S", "NC"}

// IsNongrade reports whether grade is one of the W/S/NC status codes.
func IsNongrade(grade string) bool {
	for _, g := range Nongrades {
		if grade == g {
			return true
		}
	}
	return false
}
