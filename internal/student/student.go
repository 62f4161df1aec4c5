package student

import "time"

// User is a registered student, uniquely keyed by contact number.
type User struct {
	ID                 string    `json:"id"`
	FullName           string    `json:"fullName"`
	Gender             string    `json:"gender"`
	GuardianName       string    `json:"guardianName"`
	GuardianOccupation string    `json:"guardianOccupation"`
	DateOfBirth        string    `json:"dateOfBirth"` // formatted d/m/yyyy
	Age                int       `json:"age"`
	CollegeName        string    `json:"collegeName"`
	Course             string    `json:"course"`
	StartYear          string    `json:"startYear"`
	EndYear            string    `json:"endYear"`
	City               string    `json:"city"`
	District           string    `json:"district"`
	State              string    `json:"state"`
	Pincode            string    `json:"pincode"`
	StudentContact     string    `json:"studentContact"`
	WhatsappNumber     string    `json:"whatsappNumber"`
	GuardianContact    string    `json:"guardianContact"`
	Email              string    `json:"email"`
	FamilyIncome       string    `json:"familyIncome"`
	Aadhaar            string    `json:"-"`
	IsPWD              string    `json:"isPWD"`
	IsGovtEmployee     string    `json:"isGovtEmployee"`
	SelfieURL          string    `json:"selfieUrl,omitempty"`
	PasswordHash       string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
}
