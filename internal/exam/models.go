package exam

import "time"

// Option labels for multiple-choice questions.
const (
	OptionA = "a"
	OptionB = "b"
	OptionC = "c"
	OptionD = "d"
)

// Attempt status values.
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusExpired    = "expired"
)

type Exam struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	PassingMarks    int       `json:"passing_marks"`
	IsActive        bool      `json:"is_active"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Question struct {
	ID            string    `json:"id"`
	ExamID        string    `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectAnswer string    `json:"correct_answer,omitempty"` // stripped when served to students
	Marks         int       `json:"marks"`
	CreatedAt     time.Time `json:"created_at"`
}

type Attempt struct {
	ID          string     `json:"id"`
	ExamID      string     `json:"exam_id"`
	StudentID   string     `json:"student_id"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	TotalMarks  int        `json:"total_marks"` // snapshot of the exam's total at start
	Score       *int       `json:"score,omitempty"`
	IsPassed    *bool      `json:"is_passed,omitempty"`
	Status      string     `json:"status"`
}

// Terminal reports whether the attempt has been finalized.
func (a Attempt) Terminal() bool {
	return a.Status == StatusSubmitted || a.Status == StatusExpired
}

type Answer struct {
	ID             string    `json:"id"`
	AttemptID      string    `json:"attempt_id"`
	QuestionID     string    `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
	MarksObtained  int       `json:"marks_obtained"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// AttemptRecord is an attempt joined with the display fields of its exam,
// as returned by history listings.
type AttemptRecord struct {
	Attempt
	ExamTitle        string `json:"exam_title"`
	ExamDescription  string `json:"exam_description"`
	ExamPassingMarks int    `json:"exam_passing_marks"`
}
