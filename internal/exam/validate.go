package exam

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrValidation wraps authoring-time rule violations so handlers can map
// them to a 422 for the administrator.
var ErrValidation = errors.New("validation failed")

type ExamInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=2000"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
	TotalMarks      int    `json:"total_marks" validate:"required,gt=0"`
	PassingMarks    int    `json:"passing_marks" validate:"gte=0"`
	IsActive        bool   `json:"is_active"`
}

type QuestionInput struct {
	QuestionText  string `json:"question_text" validate:"required"`
	OptionA       string `json:"option_a" validate:"required"`
	OptionB       string `json:"option_b" validate:"required"`
	OptionC       string `json:"option_c" validate:"required"`
	OptionD       string `json:"option_d" validate:"required"`
	CorrectAnswer string `json:"correct_answer" validate:"required,oneof=a b c d"`
	Marks         int    `json:"marks" validate:"required,gt=0"`
}

func (in ExamInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.PassingMarks > in.TotalMarks {
		return fmt.Errorf("%w: passing_marks %d exceeds total_marks %d",
			ErrValidation, in.PassingMarks, in.TotalMarks)
	}
	return nil
}

func (in QuestionInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
