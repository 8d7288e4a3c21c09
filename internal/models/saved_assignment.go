package models

import "time"

// SavedAssignment represents an approved question the student committed to
// work on. Description carries the approved question text.
type SavedAssignment struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	Title          string    `json:"title"`
	AssignmentName string    `json:"assignment_name"`
	Description    string    `json:"description"`
	Domain         string    `json:"domain"`
	CourseID       string    `json:"course_id"`
	CourseName     string    `json:"course_name"`
	CreatedAt      time.Time `json:"created_at"`
}
