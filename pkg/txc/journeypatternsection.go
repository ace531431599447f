package txc

type JourneyPatternSection struct {
	ID string `xml:"id,attr"`

	JourneyPatternTimingLinks []JourneyPatternTimingLink `xml:"JourneyPatternTimingLink"`
}

func (jps *JourneyPatternSection) GetTimingLink(id string) *JourneyPatternTimingLink {
	for i, timingLink := range jps.JourneyPatternTimingLinks {
		if timingLink.ID == id {
			return &jps.JourneyPatternTimingLinks[i]
		}
	}

	return nil
}

type JourneyPatternTimingLink struct {
	ID string `xml:"id,attr"`

	RouteLinkRef string
	RunTime      string // ISO-8601 period, converted on demand
	Distance     int

	From StopUsage
	To   StopUsage
}

// StopUsage is the From/To end of a timing link. FlexibleStopUsage appears
// instead of a fixed StopPointRef inside flexible journey patterns; exactly
// one of the two reference fields is set.
type StopUsage struct {
	ID             string `xml:"id,attr"`
	SequenceNumber string `xml:",attr"`

	WaitTime                  string
	Activity                  string
	DynamicDestinationDisplay string
	StopPointRef              string
	FlexibleStopPointRef      string `xml:"FlexibleStopUsage>StopPointRef"`
	TimingStatus              string
	FareStageNumber           string
}

// Ref returns whichever stop reference is populated.
func (su *StopUsage) Ref() string {
	if su.StopPointRef != "" {
		return su.StopPointRef
	}

	return su.FlexibleStopPointRef
}
