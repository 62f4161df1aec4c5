package attendance

import "time"

// Record is one persisted attendance entry. Records are created exactly
// once per successful submission and never updated or deleted.
type Record struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	SessionID       string    `json:"sessionId"`
	CourseID        string    `json:"courseId"`
	SessionName     string    `json:"sessionName"`
	CourseName      string    `json:"courseName"`
	SessionDate     string    `json:"sessionDate"`
	Mode            string    `json:"mode"`
	LocationLat     *float64  `json:"locationLat,omitempty"`
	LocationLong    *float64  `json:"locationLong,omitempty"`
	LocationAddress *string   `json:"locationAddress,omitempty"`
	Rating          int       `json:"rating"`
	Feedback        *string   `json:"feedback,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Submission carries the merged wizard output for one session/user pair.
type Submission struct {
	UserID          string
	SessionID       string
	CourseID        string
	SessionName     string
	CourseName      string
	SessionDate     string
	Mode            string
	Rating          int
	Feedback        string
	LocationLat     *float64
	LocationLong    *float64
	LocationAddress string
}

// Stats summarizes a student's attendance.
type Stats struct {
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}
