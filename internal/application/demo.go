package application

import (
	"fmt"
	"time"
)

var demoChildren = []struct{ name, father, gender string }{
	{"Ayesha Khatun", "Abdul Karim", GenderFemale},
	{"Rafiq Islam", "Nurul Islam", GenderMale},
	{"Sumaiya Akter", "Jalal Uddin", GenderFemale},
	{"Tanvir Hasan", "Mizanur Rahman", GenderMale},
	{"Nusrat Jahan", "Shahidul Alam", GenderFemale},
	{"Imran Hossain", "Delwar Hossain", GenderMale},
}

var demoPlaces = []Address{
	{District: "Dhaka", SubDistrict: "Mirpur", ResidenceStatus: ResidencePermanent},
	{District: "Sylhet", SubDistrict: "Beanibazar", ResidenceStatus: ResidenceTemporary},
	{District: "Khulna", SubDistrict: "Dumuria", ResidenceStatus: ResidencePermanent},
	{District: "Rajshahi", SubDistrict: "Paba", ResidenceStatus: ResidenceHomeless},
}

var demoStatuses = []Status{
	StatusPending, StatusIncomplete, StatusAccepted, StatusComplete,
	StatusPending, StatusRejected, StatusGranted,
}

// DemoApplications builds n deterministic applications spread over every
// status, created one hour apart starting at base.
func DemoApplications(n int, base time.Time) []Application {
	out := make([]Application, 0, n)
	for i := range n {
		child := demoChildren[i%len(demoChildren)]
		status := demoStatuses[i%len(demoStatuses)]
		created := base.Add(time.Duration(i) * time.Hour).UTC()
		a := Application{
			ID:     fmt.Sprintf("demo-%03d", i+1),
			Status: status,
			PrimaryInformation: PrimaryInformation{
				FullName:       fmt.Sprintf("%s %d", child.name, i+1),
				FatherName:     child.father,
				DateOfBirth:    time.Date(2010+i%8, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC).Format(DateLayout),
				Gender:         child.gender,
				BCRegistration: fmt.Sprintf("BC-DEMO-%04d", i+1),
			},
			Address:        demoPlaces[i%len(demoPlaces)],
			Guardian:       Guardian{Name: "Guardian of " + child.name, Relation: "uncle", Phone: fmt.Sprintf("0171100%04d", i+1)},
			CreatedBy:      "demo",
			CreatedAt:      created,
			LastModifiedAt: created,
		}
		switch status {
		case StatusIncomplete:
			a.PrimaryInformation.BCRegistration = ""
			a.Guardian.Phone = ""
		case StatusRejected:
			a.RejectionMessage = "Missing documents"
			a.LastReviewedBy = "demo-authenticator"
		case StatusAccepted, StatusGranted:
			a.LastReviewedBy = "demo-authenticator"
		}
		out = append(out, a)
	}
	return out
}
