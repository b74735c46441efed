package exam

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// SQLStore persists the exam domain on database/sql, against either the
// sqlite or the postgres schema created by the db package.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO exams
		(id,title,description,duration_minutes,total_marks,passing_marks,is_active,created_by,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			duration_minutes=EXCLUDED.duration_minutes,
			total_marks=EXCLUDED.total_marks,
			passing_marks=EXCLUDED.passing_marks,
			is_active=EXCLUDED.is_active,
			updated_at=EXCLUDED.updated_at`,
		e.ID, e.Title, e.Description, e.DurationMinutes, e.TotalMarks, e.PassingMarks,
		e.IsActive, e.CreatedBy, e.CreatedAt.Unix(), e.UpdatedAt.Unix())
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,description,duration_minutes,total_marks,passing_marks,is_active,created_by,created_at,updated_at
		FROM exams WHERE id=$1`, id)
	e, err := scanExam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, ErrExamNotFound
	}
	return e, err
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListExamsOpts) ([]Exam, error) {
	q := `SELECT id,title,description,duration_minutes,total_marks,passing_marks,is_active,created_by,created_at,updated_at FROM exams`
	var (
		where []string
		args  []any
	)
	if opts.ActiveOnly {
		where = append(where, "is_active")
	}
	if opts.CreatedBy != "" {
		args = append(args, opts.CreatedBy)
		where = append(where, "created_by=$"+itoa(len(args)))
	}
	for i, w := range where {
		if i == 0 {
			q += " WHERE " + w
		} else {
			q += " AND " + w
		}
	}
	q += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += " LIMIT $" + itoa(len(args))
		args = append(args, opts.Offset)
		q += " OFFSET $" + itoa(len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetExamActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE exams SET is_active=$1, updated_at=$2 WHERE id=$3`,
		active, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExamNotFound
	}
	return nil
}

func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExamNotFound
	}
	return nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO questions
		(id,exam_id,question_text,option_a,option_b,option_c,option_d,correct_answer,marks,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			question_text=EXCLUDED.question_text,
			option_a=EXCLUDED.option_a,
			option_b=EXCLUDED.option_b,
			option_c=EXCLUDED.option_c,
			option_d=EXCLUDED.option_d,
			correct_answer=EXCLUDED.correct_answer,
			marks=EXCLUDED.marks`,
		q.ID, q.ExamID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectAnswer, q.Marks, q.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetQuestions(ctx context.Context, examID string, withKeys bool) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,question_text,option_a,option_b,option_c,option_d,correct_answer,marks,created_at
		FROM questions WHERE exam_id=$1 ORDER BY created_at, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var q Question
		var createdAt int64
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectAnswer, &q.Marks, &createdAt); err != nil {
			return nil, err
		}
		q.CreatedAt = time.Unix(createdAt, 0).UTC()
		if !withKeys {
			q.CorrectAnswer = ""
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,exam_id,student_id,started_at,total_marks,status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.ExamID, a.StudentID, a.StartedAt.Unix(), a.TotalMarks, a.Status)
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,started_at,submitted_at,total_marks,score,is_passed,status
		FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) FinalizeAttempt(ctx context.Context, id string, fin Finalization) (Attempt, error) {
	// Conditional update: only the first finalize of an in-progress attempt
	// lands; later calls observe zero rows and read back the terminal row.
	res, err := s.db.ExecContext(ctx, `UPDATE attempts
		SET submitted_at=$1, score=$2, is_passed=$3, status=$4
		WHERE id=$5 AND status=$6`,
		fin.SubmittedAt.Unix(), fin.Score, fin.IsPassed, fin.Status, id, StatusInProgress)
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		a, err := s.GetAttempt(ctx, id)
		if err != nil {
			return Attempt{}, err
		}
		if !a.Terminal() {
			return Attempt{}, ErrAttemptNotFound
		}
		return a, nil
	}
	return s.GetAttempt(ctx, id)
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts ListAttemptsOpts) ([]AttemptRecord, error) {
	q := `SELECT a.id,a.exam_id,a.student_id,a.started_at,a.submitted_at,a.total_marks,a.score,a.is_passed,a.status,
		e.title,e.description,e.passing_marks
		FROM attempts a JOIN exams e ON e.id=a.exam_id`
	var (
		where []string
		args  []any
	)
	if opts.ExamID != "" {
		args = append(args, opts.ExamID)
		where = append(where, "a.exam_id=$"+itoa(len(args)))
	}
	if opts.StudentID != "" {
		args = append(args, opts.StudentID)
		where = append(where, "a.student_id=$"+itoa(len(args)))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		where = append(where, "a.status=$"+itoa(len(args)))
	}
	for i, w := range where {
		if i == 0 {
			q += " WHERE " + w
		} else {
			q += " AND " + w
		}
	}
	q += " ORDER BY a.started_at DESC, a.id DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += " LIMIT $" + itoa(len(args))
		args = append(args, opts.Offset)
		q += " OFFSET $" + itoa(len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttemptRecord
	for rows.Next() {
		var (
			rec         AttemptRecord
			startedAt   int64
			submittedAt sql.NullInt64
			score       sql.NullInt64
			passed      sql.NullBool
		)
		if err := rows.Scan(&rec.ID, &rec.ExamID, &rec.StudentID, &startedAt, &submittedAt,
			&rec.TotalMarks, &score, &passed, &rec.Status,
			&rec.ExamTitle, &rec.ExamDescription, &rec.ExamPassingMarks); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(startedAt, 0).UTC()
		applyNullables(&rec.Attempt, submittedAt, score, passed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertAnswer(ctx context.Context, ans Answer) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO answers
		(id,attempt_id,question_id,selected_answer,is_correct,marks_obtained,answered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (attempt_id,question_id) DO UPDATE SET
			selected_answer=EXCLUDED.selected_answer,
			is_correct=EXCLUDED.is_correct,
			marks_obtained=EXCLUDED.marks_obtained,
			answered_at=EXCLUDED.answered_at`,
		ans.ID, ans.AttemptID, ans.QuestionID, ans.SelectedAnswer, ans.IsCorrect,
		ans.MarksObtained, ans.AnsweredAt.Unix())
	return err
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,attempt_id,question_id,selected_answer,is_correct,marks_obtained,answered_at
		FROM answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		var a Answer
		var answeredAt int64
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedAnswer,
			&a.IsCorrect, &a.MarksObtained, &answeredAt); err != nil {
			return nil, err
		}
		a.AnsweredAt = time.Unix(answeredAt, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(r rowScanner) (Exam, error) {
	var e Exam
	var createdAt, updatedAt int64
	err := r.Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.TotalMarks,
		&e.PassingMarks, &e.IsActive, &e.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return Exam{}, err
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	e.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return e, nil
}

func scanAttempt(r rowScanner) (Attempt, error) {
	var (
		a           Attempt
		startedAt   int64
		submittedAt sql.NullInt64
		score       sql.NullInt64
		passed      sql.NullBool
	)
	err := r.Scan(&a.ID, &a.ExamID, &a.StudentID, &startedAt, &submittedAt,
		&a.TotalMarks, &score, &passed, &a.Status)
	if err != nil {
		return Attempt{}, err
	}
	a.StartedAt = time.Unix(startedAt, 0).UTC()
	applyNullables(&a, submittedAt, score, passed)
	return a, nil
}

func applyNullables(a *Attempt, submittedAt, score sql.NullInt64, passed sql.NullBool) {
	if submittedAt.Valid {
		t := time.Unix(submittedAt.Int64, 0).UTC()
		a.SubmittedAt = &t
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if passed.Valid {
		v := passed.Bool
		a.IsPassed = &v
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
