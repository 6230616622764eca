package models

import "time"

// ReviewRecord is the persisted report-card row for one student in a
// (class, term, year) scope: free-text remarks, the attendance
// override, the stored reopening date and the computed overall score
// and position as of the last save. Distinct from MarkRecord, which
// is per subject.
type ReviewRecord struct {
	ID              string    `db:"id" json:"id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	YearID          string    `db:"year_id" json:"year_id"`
	TermID          string    `db:"term_id" json:"term_id"`
	ClassID         string    `db:"class_id" json:"class_id"`
	StudentID       int64     `db:"student_id" json:"student_id"`
	TeacherRemarks  string    `db:"teacher_remarks" json:"teacher_remarks"`
	HeadRemarks     string    `db:"head_remarks" json:"head_remarks"`
	Attendance      int       `db:"attendance" json:"attendance"`
	ReopenDate      string    `db:"reopen_date" json:"reopen_date"`
	OverallScore    float64   `db:"overall_score" json:"overall_score"`
	OverallPosition int       `db:"overall_position" json:"overall_position"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
