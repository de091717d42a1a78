package grading

import "strconv"

// ComputeScore returns the percentage of correct answers out of
// totalQuestions, rounded to two decimals. Ungraded answers contribute
// nothing. A test without questions scores 0.
func ComputeScore(totalQuestions int, outcomes []Outcome) float64 {
	if totalQuestions <= 0 {
		return 0
	}
	correct := 0
	for _, o := range outcomes {
		if o == Correct {
			correct++
		}
	}
	if correct > totalQuestions {
		correct = totalQuestions
	}
	return Round2(float64(correct) / float64(totalQuestions) * 100)
}

// Round2 rounds f to two decimal places. The exact binary value is rounded,
// so 3.125 gives 3.12 (tie to even) and 2.675, stored just below, gives 2.67.
func Round2(f float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return r
}
