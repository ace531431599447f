package txc

type ServicedOrganisation struct {
	OrganisationCode string
	Name             string
	Note             string

	NatureOfOrganisation string
	PhaseOfEducation     string

	WorkingDays DatePattern
	Holidays    DatePattern

	ParentServicedOrganisationRef string
}

type DatePattern struct {
	DateRange   []DateRange
	Description string
}
