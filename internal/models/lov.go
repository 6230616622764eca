package models

// StatusCurrent marks the class/year/term row that should be the
// default selection.
const StatusCurrent = "CURRENT"

// SchoolClass is a selectable class list-of-values entry.
type SchoolClass struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	Name     string `db:"name" json:"name"`
}

// AcademicYear is a selectable academic year.
type AcademicYear struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	Label    string `db:"label" json:"label"`
	Status   string `db:"status" json:"status"`
}

// Current reports whether this is the school's active year.
func (y AcademicYear) Current() bool { return y.Status == StatusCurrent }

// Term is a selectable term within an academic year.
type Term struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	YearID   string `db:"year_id" json:"year_id"`
	Label    string `db:"label" json:"label"`
	Status   string `db:"status" json:"status"`
}

// Current reports whether this is the active term.
func (t Term) Current() bool { return t.Status == StatusCurrent }

// Subject is a subject taught in a class.
type Subject struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	ClassID  string `db:"class_id" json:"class_id"`
	Name     string `db:"name" json:"name"`
}
