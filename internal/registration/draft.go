// Package registration implements the four-step signup accumulator and
// the server-side transaction that turns a verified draft into a user.
package registration

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
)

// ValidPhone reports whether s is an acceptable Indian mobile number.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("aadhaar", func(fl validator.FieldLevel) bool {
		return aadhaarPattern.MatchString(fl.Field().String())
	})
	return v
}

// DOB is the split date-of-birth captured by the first step.
type DOB struct {
	Day   string `json:"day" validate:"required,number"`
	Month string `json:"month" validate:"required,number"`
	Year  string `json:"year" validate:"required,number,len=4"`
}

// Format renders the stored d/m/yyyy form.
func (d DOB) Format() string {
	return fmt.Sprintf("%s/%s/%s", d.Day, d.Month, d.Year)
}

// Age computes full years elapsed at the given time.
func (d DOB) Age(now time.Time) (int, error) {
	day, err1 := strconv.Atoi(d.Day)
	month, err2 := strconv.Atoi(d.Month)
	year, err3 := strconv.Atoi(d.Year)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, errors.New("date of birth must be numeric")
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, errors.New("date of birth is out of range")
	}
	birth := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if birth.After(now) {
		return 0, errors.New("date of birth is in the future")
	}
	age := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		age--
	}
	return age, nil
}

// Step1 holds personal information.
type Step1 struct {
	FullName           string `json:"fullName" validate:"required"`
	Gender             string `json:"gender" validate:"required"`
	GuardianName       string `json:"guardianName" validate:"required"`
	GuardianOccupation string `json:"guardianOccupation" validate:"required"`
	DateOfBirth        DOB    `json:"dateOfBirth"`
}

// Step2 holds education and location details.
type Step2 struct {
	CollegeName string `json:"collegeName" validate:"required"`
	Course      string `json:"course" validate:"required"`
	StartYear   string `json:"startYear" validate:"required,number,len=4"`
	EndYear     string `json:"endYear" validate:"required,number,len=4"`
	City        string `json:"city" validate:"required"`
	District    string `json:"district" validate:"required"`
	State       string `json:"state" validate:"required"`
	Pincode     string `json:"pincode" validate:"required,number,len=6"`
}

// Step3 holds contact and income details. The guardian's number must
// differ from the student's own.
type Step3 struct {
	StudentContact  string `json:"studentContact" validate:"required,inphone"`
	WhatsappNumber  string `json:"whatsappNumber" validate:"required,inphone"`
	GuardianContact string `json:"guardianContact" validate:"required,inphone,nefield=StudentContact"`
	Email           string `json:"email" validate:"required,email"`
	FamilyIncome    string `json:"familyIncome" validate:"required"`
}

// Step4 holds verification details and credentials.
type Step4 struct {
	Aadhaar         string `json:"aadhaar" validate:"required,aadhaar"`
	IsPWD           string `json:"isPWD" validate:"required"`
	IsGovtEmployee  string `json:"isGovtEmployee" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Draft is the client-accumulated registration state. Each step must pass
// its own validation before the client advances; the server re-validates
// the whole draft at finalize time regardless.
type Draft struct {
	Step1 Step1 `json:"step1"`
	Step2 Step2 `json:"step2"`
	Step3 Step3 `json:"step3"`
	Step4 Step4 `json:"step4"`
}

// Validate checks step 1.
func (s Step1) Validate() error { return firstViolation(validate.Struct(s)) }

// Validate checks step 2.
func (s Step2) Validate() error { return firstViolation(validate.Struct(s)) }

// Validate checks step 3.
func (s Step3) Validate() error { return firstViolation(validate.Struct(s)) }

// Validate checks step 4.
func (s Step4) Validate() error { return firstViolation(validate.Struct(s)) }

// Validate checks all four steps in order, reporting the first violation.
func (d Draft) Validate() error {
	for _, step := range []interface{ Validate() error }{d.Step1, d.Step2, d.Step3, d.Step4} {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// firstViolation converts a validator error into a single field-level
// message, matching the first-error-only reporting used elsewhere.
func firstViolation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "inphone":
		return fmt.Errorf("%s must be a valid 10-digit mobile number", fe.Field())
	case "aadhaar":
		return errors.New("aadhaar must be a 12-digit number")
	case "email":
		return errors.New("enter a valid email address")
	case "min":
		return errors.New("password must be at least 6 characters")
	case "eqfield":
		return errors.New("passwords do not match")
	case "nefield":
		return errors.New("student and guardian numbers must be different")
	case "number", "len":
		return fmt.Errorf("%s must be numeric with the expected length", fe.Field())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
