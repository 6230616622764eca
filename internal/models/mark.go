package models

import "time"

// MarkRecord is one per-subject score row for a student within a
// (class, subject, term, year) scope. Total is always derived as
// round1(class_score + exam_score); Position is the per-subject rank
// and stays empty while the total is zero.
type MarkRecord struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	YearID     string    `db:"year_id" json:"year_id"`
	TermID     string    `db:"term_id" json:"term_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	StudentID  int64     `db:"student_id" json:"student_id"`
	ClassScore float64   `db:"class_score" json:"class_score"`
	ExamScore  float64   `db:"exam_score" json:"exam_score"`
	Total      float64   `db:"total" json:"total"`
	Grade      string    `db:"grade" json:"grade"`
	Position   string    `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Exists reports whether the record has been persisted before.
func (m MarkRecord) Exists() bool {
	return m.ID != ""
}
