package models

import "time"

// GradeBand maps a percentage range to a letter grade and remark.
// Bands belong to a class; within one class the ranges must not
// overlap (enforced at entry time, not by the resolver).
type GradeBand struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	MinPercent float64   `db:"min_percent" json:"min_percent"`
	MaxPercent float64   `db:"max_percent" json:"max_percent"`
	GradeLabel string    `db:"grade_label" json:"grade_label"`
	Remark     string    `db:"remark" json:"remark"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether the score falls inside the band, bounds
// inclusive.
func (b GradeBand) Contains(score float64) bool {
	return score >= b.MinPercent && score <= b.MaxPercent
}

// Overlaps reports whether two bands share any part of their range.
func (b GradeBand) Overlaps(other GradeBand) bool {
	return b.MinPercent <= other.MaxPercent && b.MaxPercent >= other.MinPercent
}

// GradeResult is the outcome of a band lookup. Both fields are empty
// when no band matched; that is a valid outcome, not an error.
type GradeResult struct {
	Grade  string `json:"grade"`
	Remark string `json:"remark"`
}
