package models

import "time"

// RubricLevel describes one achievable score inside a rubric criterion.
type RubricLevel struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// RubricCriterion is a weighted dimension of a grading rubric.
type RubricCriterion struct {
	Description string        `json:"description"`
	Weight      float64       `json:"weight"`
	Levels      []RubricLevel `json:"levels"`
}

// Rubric defines how faculty grade submissions for a course or assignment type.
type Rubric struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Criteria    []RubricCriterion `json:"criteria"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at,omitempty"`
}
