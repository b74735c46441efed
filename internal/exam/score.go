package exam

// Score evaluates a selection against a question's answer key. Marks are
// all-or-nothing: the question's full marks for the correct label, zero for
// anything else.
func Score(q Question, selected string) (isCorrect bool, marksObtained int) {
	if selected == q.CorrectAnswer {
		return true, q.Marks
	}
	return false, 0
}

// SumMarks totals the marks obtained across a set of persisted answers.
// Unanswered questions have no row and therefore contribute nothing.
func SumMarks(answers []Answer) int {
	total := 0
	for _, a := range answers {
		total += a.MarksObtained
	}
	return total
}

// Passed applies the inclusive pass boundary: a score exactly equal to the
// passing marks passes.
func Passed(score, passingMarks int) bool {
	return score >= passingMarks
}
