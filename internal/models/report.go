package models

import "fmt"

// Scope bounds one report computation: a school, academic year, term
// and class. Every fetch and every save in the pipeline carries the
// full tuple.
type Scope struct {
	SchoolID string `json:"school_id"`
	YearID   string `json:"year_id"`
	TermID   string `json:"term_id"`
	ClassID  string `json:"class_id"`
}

// Key returns a stable token identifying the scope. Two builds with
// the same key target the same report.
func (s Scope) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", s.SchoolID, s.YearID, s.TermID, s.ClassID)
}

// Complete reports whether every scope component is set.
func (s Scope) Complete() bool {
	return s.SchoolID != "" && s.YearID != "" && s.TermID != "" && s.ClassID != ""
}

// StudentAggregate is the per-student outcome of the score
// aggregation phase. Failed marks students whose mark fetch errored;
// their average is zero and the report build continues without them.
type StudentAggregate struct {
	StudentID int64   `json:"student_id"`
	Name      string  `json:"name"`
	IndexNo   string  `json:"index_no"`
	Average   float64 `json:"average"`
	Subjects  int     `json:"subjects"`
	Failed    bool    `json:"failed,omitempty"`
}

// ReportRow is the in-memory merge of roster, aggregate score, rank,
// band lookup, attendance and stored review fields. Dirty and SavedOk
// are editing-session state, never persisted.
type ReportRow struct {
	StudentID       int64   `json:"student_id"`
	Name            string  `json:"name"`
	IndexNo         string  `json:"index_no"`
	ReviewID        string  `json:"review_id,omitempty"`
	OverallScore    float64 `json:"overall_score"`
	OverallPosition int     `json:"overall_position"`
	Grade           string  `json:"grade"`
	Remark          string  `json:"remark"`
	Attendance      int     `json:"attendance"`
	TeacherRemarks  string  `json:"teacher_remarks"`
	HeadRemarks     string  `json:"head_remarks"`
	ReopenDate      string  `json:"reopen_date"`
	AggregateFailed bool    `json:"aggregate_failed,omitempty"`
	Dirty           bool    `json:"dirty"`
	SavedOk         bool    `json:"saved_ok"`
}

// ClassReport is the assembled report for one scope.
type ClassReport struct {
	Scope          Scope       `json:"scope"`
	Rows           []ReportRow `json:"rows"`
	ReopenDate     string      `json:"reopen_date"`
	PartialFailures int        `json:"partial_failures"`
}

// AttendanceSummaryRow is one normalized row of the upstream
// attendance summary. ClassID is nil when the upstream payload is not
// class-scoped; consumers must then intersect with the roster.
type AttendanceSummaryRow struct {
	StudentID int64   `db:"student_id" json:"student_id"`
	ClassID   *string `db:"class_id" json:"class_id,omitempty"`
	Present   int     `db:"present" json:"present"`
}
