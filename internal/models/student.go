package models

// Student is a roster entry. Students are owned by the enrolment
// side of the platform; this service only reads them.
type Student struct {
	ID       int64  `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	ClassID  string `db:"class_id" json:"class_id"`
	Name     string `db:"name" json:"name"`
	IndexNo  string `db:"index_no" json:"index_no"`
}
