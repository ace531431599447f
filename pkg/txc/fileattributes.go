package txc

import (
	"time"
)

// FileAttributes is the per-file metadata the supersession selector works
// on. One record per TXC file in a revision.
type FileAttributes struct {
	Filename             string
	ServiceCode          string
	RevisionNumber       int
	NationalOperatorCode string
	LicenceNumber        string
	LineNames            []string
	Origin               string
	Destination          string

	OperatingPeriodStartDate *time.Time
	OperatingPeriodEndDate   *time.Time

	ModificationDateTime time.Time
	PublicUse            bool
	ServiceMode          string
	Hash                 string
}

// ExtractFileAttributes computes the attribute record for a parsed
// document. Optional fields stay at their zero value; a missing end date is
// nil because open-ended operating periods are common.
func (doc *Document) ExtractFileAttributes(filename string, hash string) FileAttributes {
	attributes := FileAttributes{
		Filename:       filename,
		Hash:           hash,
		RevisionNumber: doc.RevisionNumber,
		PublicUse:      true,
		ServiceMode:    "bus",
	}

	if modification, err := time.Parse(DateTimeFormat, doc.ModificationDateTime); err == nil {
		attributes.ModificationDateTime = modification
	} else if modification, err := time.Parse(time.RFC3339, doc.ModificationDateTime); err == nil {
		// Some publishers include the zone offset; keep it
		attributes.ModificationDateTime = modification
	}

	if len(doc.Operators) > 0 {
		attributes.NationalOperatorCode = doc.Operators[0].NationalOperatorCode
		attributes.LicenceNumber = doc.Operators[0].LicenceNumber
	}

	if len(doc.Services) == 0 {
		return attributes
	}

	service := doc.Services[0]

	attributes.ServiceCode = service.ServiceCode

	if service.PublicUse != "" {
		attributes.PublicUse = service.PublicUse == "true" || service.PublicUse == "1"
	}
	if service.Mode != "" {
		attributes.ServiceMode = service.Mode
	}

	for _, line := range service.Lines {
		attributes.LineNames = append(attributes.LineNames, line.LineName)
	}

	if service.StandardService != nil {
		attributes.Origin = service.StandardService.Origin
		attributes.Destination = service.StandardService.Destination
	} else if service.FlexibleService != nil {
		attributes.Origin = service.FlexibleService.Origin
		attributes.Destination = service.FlexibleService.Destination
	}

	if start, err := time.Parse(DateFormat, service.StartDate); err == nil {
		attributes.OperatingPeriodStartDate = &start
	}
	if end, err := time.Parse(DateFormat, service.EndDate); err == nil {
		attributes.OperatingPeriodEndDate = &end
	}

	return attributes
}
