package txc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ParseXML reads a whole TransXChange document from the reader. Element
// matching is on local names only, so namespace prefixes never matter.
// A bad child element is logged and skipped; it never loses its section.
// External entity resolution is not a thing encoding/xml does, and the
// dangerous-XML scan runs before this parser ever sees a byte.
func ParseXML(reader io.Reader) (*Document, error) {
	doc := Document{}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = true

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "decoding token: %s", err)
		} else if tok == nil {
			break
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			switch ty.Name.Local {
			case "TransXChange":
				for _, attr := range ty.Attr {
					switch attr.Name.Local {
					case "CreationDateTime":
						doc.CreationDateTime = attr.Value
					case "ModificationDateTime":
						doc.ModificationDateTime = attr.Value
					case "SchemaVersion":
						doc.SchemaVersion = attr.Value
					case "RevisionNumber":
						doc.RevisionNumber, _ = strconv.Atoi(attr.Value)
					case "FileName":
						doc.FileName = attr.Value
					}
				}

				if err := doc.Validate(); err != nil {
					return nil, pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "document header: %s", err)
				}
			case "AnnotatedStopPointRef":
				var stopPoint AnnotatedStopPointRef
				if decodeSection(d, &ty, &stopPoint, func() error {
					if stopPoint.StopPointRef == "" {
						return fmt.Errorf("StopPointRef must be set")
					}
					return nil
				}) {
					doc.StopPoints = append(doc.StopPoints, &stopPoint)
				}
			case "StopPoint":
				var stopPoint StopPoint
				if decodeSection(d, &ty, &stopPoint, func() error {
					if stopPoint.AtcoCode == "" {
						return fmt.Errorf("AtcoCode must be set")
					}
					return nil
				}) {
					doc.FullStopPoints = append(doc.FullStopPoints, &stopPoint)
				}
			case "Operator", "LicensedOperator":
				var operator Operator
				if decodeSection(d, &ty, &operator, nil) {
					doc.Operators = append(doc.Operators, &operator)
				}
			case "Route":
				var route Route
				if decodeSection(d, &ty, &route, func() error {
					if route.ID == "" {
						return fmt.Errorf("id attribute must be set")
					}
					return nil
				}) {
					doc.Routes = append(doc.Routes, &route)
				}
			case "RouteSection":
				var routeSection RouteSection
				if decodeSection(d, &ty, &routeSection, func() error {
					if routeSection.ID == "" {
						return fmt.Errorf("id attribute must be set")
					}
					return nil
				}) {
					doc.RouteSections = append(doc.RouteSections, &routeSection)
				}
			case "JourneyPatternSection":
				var jps JourneyPatternSection
				if decodeSection(d, &ty, &jps, func() error {
					if jps.ID == "" {
						return fmt.Errorf("id attribute must be set")
					}
					return nil
				}) {
					doc.JourneyPatternSections = append(doc.JourneyPatternSections, &jps)
				}
			case "Service":
				var service Service
				if decodeSection(d, &ty, &service, func() error {
					if service.ServiceCode == "" {
						return fmt.Errorf("ServiceCode must be set")
					}
					return nil
				}) {
					doc.Services = append(doc.Services, &service)
				}
			case "VehicleJourney", "FlexibleVehicleJourney":
				var vehicleJourney VehicleJourney
				if decodeSection(d, &ty, &vehicleJourney, func() error {
					if vehicleJourney.ServiceRef == "" {
						return fmt.Errorf("ServiceRef must be set")
					}
					if ty.Name.Local == "FlexibleVehicleJourney" {
						if vehicleJourney.FlexibleServiceTimes == nil {
							return fmt.Errorf("FlexibleVehicleJourney requires FlexibleServiceTimes")
						}
						return vehicleJourney.FlexibleServiceTimes.Validate()
					}
					return nil
				}) {
					doc.VehicleJourneys = append(doc.VehicleJourneys, &vehicleJourney)
				}
			case "ServicedOrganisation":
				var org ServicedOrganisation
				if decodeSection(d, &ty, &org, func() error {
					if org.OrganisationCode == "" {
						return fmt.Errorf("OrganisationCode must be set")
					}
					return nil
				}) {
					doc.ServicedOrganisations = append(doc.ServicedOrganisations, &org)
				}
			}
		}
	}

	if len(doc.Operators) == 0 {
		return nil, pipeline.NewValidationError(pipeline.ErrorNoDataFound, "document contains no operators")
	}

	log.Debug().
		Int("operators", len(doc.Operators)).
		Int("services", len(doc.Services)).
		Int("routes", len(doc.Routes)).
		Int("route_sections", len(doc.RouteSections)).
		Int("vehicle_journeys", len(doc.VehicleJourneys)).
		Msg("Parsed TransXChange document")

	return &doc, nil
}

func decodeSection[T any](d *xml.Decoder, start *xml.StartElement, into *T, validate func() error) bool {
	if err := d.DecodeElement(into, start); err != nil {
		log.Error().Err(err).Str("element", start.Name.Local).Msg("Skipping undecodable element")
		return false
	}

	if validate != nil {
		if err := validate(); err != nil {
			log.Error().Err(err).Str("element", start.Name.Local).Msg("Skipping invalid element")
			return false
		}
	}

	return true
}
