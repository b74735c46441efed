package exam

import "testing"

func TestScore(t *testing.T) {
	q := Question{ID: "q1", CorrectAnswer: OptionB, Marks: 5}

	tests := []struct {
		name     string
		selected string
		correct  bool
		marks    int
	}{
		{name: "correct label", selected: "b", correct: true, marks: 5},
		{name: "wrong label", selected: "a", correct: false, marks: 0},
		{name: "another wrong label", selected: "c", correct: false, marks: 0},
		{name: "last wrong label", selected: "d", correct: false, marks: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotCorrect, gotMarks := Score(q, tc.selected)
			if gotCorrect != tc.correct || gotMarks != tc.marks {
				t.Fatalf("Score(%q) = (%v, %d), want (%v, %d)",
					tc.selected, gotCorrect, gotMarks, tc.correct, tc.marks)
			}
		})
	}
}

func TestSumMarks(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", MarksObtained: 5},
		{QuestionID: "q2", MarksObtained: 0},
		{QuestionID: "q3", MarksObtained: 3},
	}
	if got := SumMarks(answers); got != 8 {
		t.Fatalf("SumMarks = %d, want 8", got)
	}
	if got := SumMarks(nil); got != 0 {
		t.Fatalf("SumMarks(nil) = %d, want 0", got)
	}
}

func TestPassedInclusiveBoundary(t *testing.T) {
	tests := []struct {
		score, passing int
		want           bool
	}{
		{score: 5, passing: 5, want: true}, // exactly the passing marks passes
		{score: 4, passing: 5, want: false},
		{score: 6, passing: 5, want: true},
		{score: 0, passing: 0, want: true},
	}
	for _, tc := range tests {
		if got := Passed(tc.score, tc.passing); got != tc.want {
			t.Errorf("Passed(%d, %d) = %v, want %v", tc.score, tc.passing, got, tc.want)
		}
	}
}
