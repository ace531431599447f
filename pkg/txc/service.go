package txc

type Service struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	ServiceCode              string
	PrivateCode              string
	TicketMachineServiceCode string
	RegisteredOperatorRef    string
	PublicUse                string
	Mode                     string

	StartDate string `xml:"OperatingPeriod>StartDate"`
	EndDate   string `xml:"OperatingPeriod>EndDate"`

	OperatingProfile OperatingProfile

	ServiceClassification *ServiceClassification

	Lines []Line `xml:"Lines>Line"`

	StandardService *StandardService
	FlexibleService *FlexibleService
}

// IsFlexible per the TXC profile: a flexible classification or a
// FlexibleService block, either one marks the whole service flexible.
func (s *Service) IsFlexible() bool {
	if s.ServiceClassification != nil && s.ServiceClassification.Flexible != nil {
		return true
	}

	return s.FlexibleService != nil
}

func (s *Service) GetLine(id string) *Line {
	for i, line := range s.Lines {
		if line.ID == id {
			return &s.Lines[i]
		}
	}

	return nil
}

// JourneyPatterns returns the patterns of whichever service variant is
// present, standard first.
func (s *Service) JourneyPatterns() []JourneyPattern {
	var patterns []JourneyPattern

	if s.StandardService != nil {
		patterns = append(patterns, s.StandardService.JourneyPatterns...)
	}
	if s.FlexibleService != nil {
		for _, flexible := range s.FlexibleService.FlexibleJourneyPatterns {
			patterns = append(patterns, flexible.JourneyPattern)
		}
	}

	return patterns
}

func (s *Service) GetJourneyPattern(id string) *JourneyPattern {
	patterns := s.JourneyPatterns()
	for i, pattern := range patterns {
		if pattern.ID == id {
			return &patterns[i]
		}
	}

	return nil
}

type ServiceClassification struct {
	NormalStopping *struct{}
	Flexible       *struct{}
}

type Line struct {
	ID       string `xml:"id,attr"`
	LineName string

	OutboundOrigin      string `xml:"OutboundDescription>Origin"`
	OutboundDestination string `xml:"OutboundDescription>Destination"`
	OutboundDescription string `xml:"OutboundDescription>Description"`

	InboundOrigin      string `xml:"InboundDescription>Origin"`
	InboundDestination string `xml:"InboundDescription>Destination"`
	InboundDescription string `xml:"InboundDescription>Description"`
}

type StandardService struct {
	Origin           string
	Destination      string
	UseAllStopPoints string

	JourneyPatterns []JourneyPattern `xml:"JourneyPattern"`
}

type FlexibleService struct {
	Origin      string
	Destination string

	FlexibleJourneyPatterns []FlexibleJourneyPattern `xml:"FlexibleJourneyPattern"`
}

type JourneyPattern struct {
	ID                   string `xml:"id,attr"`
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	DestinationDisplay string
	OperatorRef        string
	Direction          string
	RouteRef           string

	JourneyPatternSectionRefs []string

	OperatingProfile OperatingProfile
}

type FlexibleJourneyPattern struct {
	JourneyPattern

	BookingArrangements *BookingArrangements

	FlexibleZones []string `xml:"StopPointsInSequence>FlexibleStopUsage>StopPointRef"`
	FixedStops    []string `xml:"StopPointsInSequence>FixedStopUsage>StopPointRef"`
}

type BookingArrangements struct {
	Description      string
	Phone            string `xml:"Phone>TelNationalNumber"`
	Email            string
	WebAddress       string
	AllBookingsTaken bool
}
