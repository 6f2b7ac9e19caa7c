package application

import (
	"fmt"
	"strings"
	"time"
)

// Status is the review state of an application.
type Status string

const (
	StatusIncomplete Status = "INCOMPLETE"
	StatusComplete   Status = "COMPLETE"
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusRejected   Status = "REJECTED"
	StatusGranted    Status = "GRANTED"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusIncomplete, StatusComplete, StatusPending,
	StatusAccepted, StatusRejected, StatusGranted,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts any letter case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return s, nil
}

// Enumerated form values. Stored upper-case.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"

	ResidencePermanent = "PERMANENT"
	ResidenceTemporary = "TEMPORARY"
	ResidenceHomeless  = "HOMELESS"

	ConditionHealthy  = "HEALTHY"
	ConditionDisabled = "DISABLED"
	ConditionSick     = "CHRONICALLY_ILL"
)

// DateLayout is the format of DateOfBirth.
const DateLayout = "2006-01-02"

type PrimaryInformation struct {
	FullName          string `json:"fullName" validate:"max=120"`
	FatherName        string `json:"fatherName" validate:"max=120"`
	MotherName        string `json:"motherName" validate:"max=120"`
	DateOfBirth       string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender            string `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	BCRegistration    string `json:"bcRegistration" validate:"max=40"`
	PhysicalCondition string `json:"physicalCondition" validate:"omitempty,oneof=HEALTHY DISABLED CHRONICALLY_ILL"`
}

type Address struct {
	District        string `json:"district" validate:"max=80"`
	SubDistrict     string `json:"subDistrict" validate:"max=80"`
	Village         string `json:"village" validate:"max=120"`
	ResidenceStatus string `json:"residenceStatus" validate:"omitempty,oneof=PERMANENT TEMPORARY HOMELESS"`
}

type Guardian struct {
	Name       string `json:"name" validate:"max=120"`
	Relation   string `json:"relation" validate:"max=40"`
	Phone      string `json:"phone" validate:"max=20"`
	Occupation string `json:"occupation" validate:"max=80"`
}

type Education struct {
	Institution string `json:"institution" validate:"max=120"`
	Class       string `json:"class" validate:"max=40"`
	LastResult  string `json:"lastResult" validate:"max=40"`
}

type FamilyMember struct {
	Name       string `json:"name" validate:"required,max=120"`
	Relation   string `json:"relation" validate:"max=40"`
	Age        int    `json:"age" validate:"gte=0,lte=130"`
	Occupation string `json:"occupation" validate:"max=80"`
}

// Application is the full benefit application record.
type Application struct {
	ID                 string             `json:"id"`
	Status             Status             `json:"status"`
	RejectionMessage   string             `json:"rejectionMessage,omitempty"`
	PrimaryInformation PrimaryInformation `json:"primaryInformation"`
	Address            Address            `json:"address"`
	Guardian           Guardian           `json:"guardian"`
	Education          Education          `json:"education"`
	FamilyMembers      []FamilyMember     `json:"familyMembers"`
	PhotoURL           string             `json:"photoUrl,omitempty"`
	CreatedBy          string             `json:"createdBy"`
	LastReviewedBy     string             `json:"lastReviewedBy,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	LastModifiedAt     time.Time          `json:"lastModifiedAt"`
}

// Summary is the list projection of an Application.
type Summary struct {
	ID                 string             `json:"id"`
	Status             Status             `json:"status"`
	PrimaryInformation PrimaryInformation `json:"primaryInformation"`
	Address            Address            `json:"address"`
	CreatedBy          string             `json:"createdBy"`
	LastReviewedBy     string             `json:"lastReviewedBy,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	LastModifiedAt     time.Time          `json:"lastModifiedAt"`
}

func (a Application) Summary() Summary {
	return Summary{
		ID:                 a.ID,
		Status:             a.Status,
		PrimaryInformation: a.PrimaryInformation,
		Address:            a.Address,
		CreatedBy:          a.CreatedBy,
		LastReviewedBy:     a.LastReviewedBy,
		CreatedAt:          a.CreatedAt,
		LastModifiedAt:     a.LastModifiedAt,
	}
}

// Draft is the editable part of an application. Submit asks for a complete
// draft to be sent for review.
type Draft struct {
	PrimaryInformation PrimaryInformation `json:"primaryInformation"`
	Address            Address            `json:"address"`
	Guardian           Guardian           `json:"guardian"`
	Education          Education          `json:"education"`
	FamilyMembers      []FamilyMember     `json:"familyMembers" validate:"dive"`
	PhotoURL           string             `json:"photoUrl,omitempty" validate:"omitempty,url"`
	Submit             bool               `json:"submit"`
}

// Normalize trims every text field and upper-cases enumerated values.
func (d Draft) Normalize() Draft {
	t := strings.TrimSpace
	p := &d.PrimaryInformation
	p.FullName, p.FatherName, p.MotherName = t(p.FullName), t(p.FatherName), t(p.MotherName)
	p.DateOfBirth, p.BCRegistration = t(p.DateOfBirth), t(p.BCRegistration)
	p.Gender = strings.ToUpper(t(p.Gender))
	p.PhysicalCondition = strings.ToUpper(t(p.PhysicalCondition))
	a := &d.Address
	a.District, a.SubDistrict, a.Village = t(a.District), t(a.SubDistrict), t(a.Village)
	a.ResidenceStatus = strings.ToUpper(t(a.ResidenceStatus))
	g := &d.Guardian
	g.Name, g.Relation, g.Phone, g.Occupation = t(g.Name), t(g.Relation), t(g.Phone), t(g.Occupation)
	e := &d.Education
	e.Institution, e.Class, e.LastResult = t(e.Institution), t(e.Class), t(e.LastResult)
	members := make([]FamilyMember, 0, len(d.FamilyMembers))
	for _, m := range d.FamilyMembers {
		m.Name, m.Relation, m.Occupation = t(m.Name), t(m.Relation), t(m.Occupation)
		members = append(members, m)
	}
	d.FamilyMembers = members
	d.PhotoURL = t(d.PhotoURL)
	return d
}

// MissingFields lists the required fields still empty, as JSON paths.
func (d Draft) MissingFields() []string {
	var missing []string
	check := func(path, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, path)
		}
	}
	p := d.PrimaryInformation
	check("primaryInformation.fullName", p.FullName)
	check("primaryInformation.fatherName", p.FatherName)
	check("primaryInformation.dateOfBirth", p.DateOfBirth)
	check("primaryInformation.gender", p.Gender)
	check("primaryInformation.bcRegistration", p.BCRegistration)
	check("address.district", d.Address.District)
	check("address.subDistrict", d.Address.SubDistrict)
	check("address.residenceStatus", d.Address.ResidenceStatus)
	check("guardian.name", d.Guardian.Name)
	check("guardian.phone", d.Guardian.Phone)
	return missing
}

// Complete reports whether every required field is present.
func (d Draft) Complete() bool { return len(d.MissingFields()) == 0 }

// Validate checks formats that are independent of completeness.
func (d Draft) Validate() error {
	p := d.PrimaryInformation
	if p.DateOfBirth != "" {
		dob, err := time.Parse(DateLayout, p.DateOfBirth)
		if err != nil {
			return fmt.Errorf("%w: dateOfBirth must be YYYY-MM-DD", ErrValidation)
		}
		if dob.After(time.Now()) {
			return fmt.Errorf("%w: dateOfBirth is in the future", ErrValidation)
		}
	}
	if p.Gender != "" && p.Gender != GenderMale && p.Gender != GenderFemale {
		return fmt.Errorf("%w: unknown gender %q", ErrValidation, p.Gender)
	}
	switch d.Address.ResidenceStatus {
	case "", ResidencePermanent, ResidenceTemporary, ResidenceHomeless:
	default:
		return fmt.Errorf("%w: unknown residenceStatus %q", ErrValidation, d.Address.ResidenceStatus)
	}
	switch p.PhysicalCondition {
	case "", ConditionHealthy, ConditionDisabled, ConditionSick:
	default:
		return fmt.Errorf("%w: unknown physicalCondition %q", ErrValidation, p.PhysicalCondition)
	}
	for i, m := range d.FamilyMembers {
		if m.Name == "" {
			return fmt.Errorf("%w: familyMembers[%d].name is required", ErrValidation, i)
		}
		if m.Age < 0 {
			return fmt.Errorf("%w: familyMembers[%d].age is negative", ErrValidation, i)
		}
	}
	return nil
}

// Page is one page of list results.
type Page struct {
	Content          []Summary `json:"content"`
	Number           int       `json:"number"`
	Size             int       `json:"size"`
	TotalElements    int64     `json:"totalElements"`
	TotalPages       int       `json:"totalPages"`
	NumberOfElements int       `json:"numberOfElements"`
	First            bool      `json:"first"`
	Last             bool      `json:"last"`
}

// NewPage derives the page metadata from the slice and the total count.
func NewPage(content []Summary, number, size int, total int64) Page {
	if content == nil {
		content = []Summary{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{
		Content:          content,
		Number:           number,
		Size:             size,
		TotalElements:    total,
		TotalPages:       totalPages,
		NumberOfElements: len(content),
		First:            number == 0,
		Last:             totalPages == 0 || number >= totalPages-1,
	}
}
