package txc

import (
	"fmt"
)

// RefIndex holds the flat id lookup maps for one document. The TXC
// reference graph is cyclic in the domain but acyclic in the file, so ids
// plus an index are all that is ever needed.
type RefIndex struct {
	Routes                 map[string]*Route
	RouteSections          map[string]*RouteSection
	JourneyPatternSections map[string]*JourneyPatternSection
	Services               map[string]*Service
	VehicleJourneys        map[string]*VehicleJourney
	StopPoints             map[string]bool
}

// BuildIndex indexes the document, parses every operating profile and
// checks every cross-reference resolves. The first invalid profile or
// unresolvable reference fails the parse.
func (doc *Document) BuildIndex() (*RefIndex, error) {
	index := &RefIndex{
		Routes:                 map[string]*Route{},
		RouteSections:          map[string]*RouteSection{},
		JourneyPatternSections: map[string]*JourneyPatternSection{},
		Services:               map[string]*Service{},
		VehicleJourneys:        map[string]*VehicleJourney{},
		StopPoints:             map[string]bool{},
	}

	for _, route := range doc.Routes {
		index.Routes[route.ID] = route
	}
	for _, routeSection := range doc.RouteSections {
		index.RouteSections[routeSection.ID] = routeSection
	}
	for _, jps := range doc.JourneyPatternSections {
		index.JourneyPatternSections[jps.ID] = jps
	}
	for _, service := range doc.Services {
		index.Services[service.ServiceCode] = service
	}
	for _, journey := range doc.VehicleJourneys {
		index.VehicleJourneys[journey.VehicleJourneyCode] = journey
	}
	for _, stopPoint := range doc.StopPoints {
		index.StopPoints[stopPoint.StopPointRef] = true
	}
	for _, stopPoint := range doc.FullStopPoints {
		index.StopPoints[stopPoint.AtcoCode] = true
	}

	for _, service := range doc.Services {
		if err := service.OperatingProfile.Parse(); err != nil {
			return nil, fmt.Errorf("service %s operating profile: %w", service.ServiceCode, err)
		}
	}
	for _, journey := range doc.VehicleJourneys {
		if err := journey.OperatingProfile.Parse(); err != nil {
			return nil, fmt.Errorf("vehicle journey %s operating profile: %w", journey.VehicleJourneyCode, err)
		}
	}

	if err := index.validate(doc); err != nil {
		return nil, err
	}

	return index, nil
}

func (index *RefIndex) validate(doc *Document) error {
	for _, service := range doc.Services {
		for _, pattern := range service.JourneyPatterns() {
			if pattern.RouteRef != "" {
				if _, exists := index.Routes[pattern.RouteRef]; !exists {
					return fmt.Errorf("journey pattern %s references unknown route %s", pattern.ID, pattern.RouteRef)
				}
			}

			for _, sectionRef := range pattern.JourneyPatternSectionRefs {
				if _, exists := index.JourneyPatternSections[sectionRef]; !exists {
					return fmt.Errorf("journey pattern %s references unknown journey pattern section %s", pattern.ID, sectionRef)
				}
			}
		}
	}

	for _, jps := range doc.JourneyPatternSections {
		for _, timingLink := range jps.JourneyPatternTimingLinks {
			for _, usage := range []StopUsage{timingLink.From, timingLink.To} {
				if ref := usage.Ref(); ref != "" && !index.StopPoints[ref] {
					return fmt.Errorf("timing link %s references unknown stop point %s", timingLink.ID, ref)
				}
			}
		}
	}

	for _, journey := range doc.VehicleJourneys {
		service, exists := index.Services[journey.ServiceRef]
		if !exists {
			return fmt.Errorf("vehicle journey %s references unknown service %s", journey.VehicleJourneyCode, journey.ServiceRef)
		}

		if journey.LineRef != "" && service.GetLine(journey.LineRef) == nil {
			return fmt.Errorf("vehicle journey %s references unknown line %s", journey.VehicleJourneyCode, journey.LineRef)
		}

		if _, err := index.resolveJourneyPattern(journey, service, 0); err != nil {
			return err
		}
	}

	return nil
}

// resolveJourneyPattern follows JourneyPatternRef directly, or transitively
// through VehicleJourneyRef chains.
func (index *RefIndex) resolveJourneyPattern(journey *VehicleJourney, service *Service, depth int) (*JourneyPattern, error) {
	if depth > len(index.VehicleJourneys) {
		return nil, fmt.Errorf("vehicle journey %s has a circular VehicleJourneyRef chain", journey.VehicleJourneyCode)
	}

	if journey.JourneyPatternRef != "" {
		pattern := service.GetJourneyPattern(journey.JourneyPatternRef)
		if pattern == nil {
			return nil, fmt.Errorf("vehicle journey %s references unknown journey pattern %s", journey.VehicleJourneyCode, journey.JourneyPatternRef)
		}
		return pattern, nil
	}

	if journey.VehicleJourneyRef != "" {
		referenced, exists := index.VehicleJourneys[journey.VehicleJourneyRef]
		if !exists {
			return nil, fmt.Errorf("vehicle journey %s references unknown vehicle journey %s", journey.VehicleJourneyCode, journey.VehicleJourneyRef)
		}
		return index.resolveJourneyPattern(referenced, service, depth+1)
	}

	return nil, fmt.Errorf("vehicle journey %s has neither JourneyPatternRef nor VehicleJourneyRef", journey.VehicleJourneyCode)
}
