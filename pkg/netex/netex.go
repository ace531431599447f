package netex

import (
	"time"
)

const DateTimeFormat = "2006-01-02T15:04:05"

// Document is one parsed NeTEx fares file, reduced to what the metadata
// aggregation needs.
type Document struct {
	SchemaVersion string

	FareFrameCount int

	FareProducts        []FareProduct
	FareZones           []FareZone
	Lines               []Line
	SalesOfferPackages  []SalesOfferPackage
	UserProfiles        []UserProfile
	ScheduledStopPoints []ScheduledStopPoint

	ValidFrom *time.Time
	ValidTo   *time.Time
}

type FareProduct struct {
	ID          string `xml:"id,attr"`
	Name        string
	ProductType string
	TripType    string `xml:"ConditionSummary>TripType"`
}

type FareZone struct {
	ID   string `xml:"id,attr"`
	Name string

	Members []ScheduledStopPointRef `xml:"members>ScheduledStopPointRef"`
}

type Line struct {
	ID         string `xml:"id,attr"`
	Name       string
	PublicCode string
}

type SalesOfferPackage struct {
	ID   string `xml:"id,attr"`
	Name string
}

type UserProfile struct {
	ID       string `xml:"id,attr"`
	Name     string
	UserType string
}

type ScheduledStopPointRef struct {
	Ref string `xml:"ref,attr"`
}

type ScheduledStopPoint struct {
	ID   string `xml:"id,attr"`
	Name string
}

// ProductTypes returns the distinct product types in document order.
func (doc *Document) ProductTypes() []string {
	var types []string
	seen := map[string]bool{}

	for _, product := range doc.FareProducts {
		if product.ProductType != "" && !seen[product.ProductType] {
			seen[product.ProductType] = true
			types = append(types, product.ProductType)
		}
	}

	return types
}

// UserTypes returns the distinct user types in document order.
func (doc *Document) UserTypes() []string {
	var types []string
	seen := map[string]bool{}

	for _, profile := range doc.UserProfiles {
		if profile.UserType != "" && !seen[profile.UserType] {
			seen[profile.UserType] = true
			types = append(types, profile.UserType)
		}
	}

	return types
}

// StopPointIDs returns every scheduled stop point referenced by the
// document, definitions first then fare zone members.
func (doc *Document) StopPointIDs() []string {
	var ids []string
	seen := map[string]bool{}

	for _, stopPoint := range doc.ScheduledStopPoints {
		if !seen[stopPoint.ID] {
			seen[stopPoint.ID] = true
			ids = append(ids, stopPoint.ID)
		}
	}

	for _, zone := range doc.FareZones {
		for _, member := range zone.Members {
			if member.Ref != "" && !seen[member.Ref] {
				seen[member.Ref] = true
				ids = append(ids, member.Ref)
			}
		}
	}

	return ids
}
