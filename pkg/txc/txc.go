package txc

import (
	"errors"
)

// ErrNoData is raised when a document carries no Operators at all; the
// task recorder maps it onto the no-data-found error kind.
var ErrNoData = errors.New("document contains no data")

const DateFormat = "2006-01-02"
const DateTimeFormat = "2006-01-02T15:04:05"

// Document is one parsed TransXChange file. Sections are flat ordered
// collections; cross-references stay as ids and are resolved through a
// RefIndex, never a pointer graph.
type Document struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`
	SchemaVersion        string `xml:",attr"`
	RevisionNumber       int    `xml:",attr"`
	FileName             string `xml:",attr"`

	StopPoints             []*AnnotatedStopPointRef
	FullStopPoints         []*StopPoint
	Operators              []*Operator
	Routes                 []*Route
	RouteSections          []*RouteSection
	JourneyPatternSections []*JourneyPatternSection
	Services               []*Service
	VehicleJourneys        []*VehicleJourney
	ServicedOrganisations  []*ServicedOrganisation
}

func (doc *Document) Validate() error {
	if doc.CreationDateTime == "" {
		return errors.New("CreationDateTime must be set")
	}
	if doc.ModificationDateTime == "" {
		return errors.New("ModificationDateTime must be set")
	}
	if doc.SchemaVersion == "" {
		return errors.New("SchemaVersion must be set")
	}

	return nil
}

// IsFlexible reports whether any service in the document is flexible. Used
// by the rule engine to pick which observations apply.
func (doc *Document) IsFlexible() bool {
	for _, service := range doc.Services {
		if service.IsFlexible() {
			return true
		}
	}

	return false
}

func (doc *Document) GetService(serviceCode string) *Service {
	for _, service := range doc.Services {
		if service.ServiceCode == serviceCode {
			return service
		}
	}

	return nil
}

func (doc *Document) GetServicedOrganisation(organisationCode string) *ServicedOrganisation {
	for _, org := range doc.ServicedOrganisations {
		if org.OrganisationCode == organisationCode {
			return org
		}
	}

	return nil
}
