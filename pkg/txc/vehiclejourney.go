package txc

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	iso8601 "github.com/senseyeio/duration"
)

type VehicleJourney struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`
	SequenceNumber       string `xml:",attr"`

	PrivateCode        string
	OperatorRef        string
	Direction          string
	GarageRef          string
	VehicleJourneyCode string
	ServiceRef         string
	LineRef            string
	JourneyPatternRef  string
	VehicleJourneyRef  string
	DepartureTime      string
	DepartureDayShift  int

	Frequency *Frequency

	VehicleJourneyTimingLinks []VehicleJourneyTimingLink `xml:"VehicleJourneyTimingLink"`

	OperatingProfile OperatingProfile

	FlexibleServiceTimes *FlexibleServiceTimes
}

// IsFlexible per the TXC profile: presence of FlexibleServiceTimes.
func (v *VehicleJourney) IsFlexible() bool {
	return v.FlexibleServiceTimes != nil
}

func (v *VehicleJourney) GetVehicleJourneyTimingLinkByJourneyPatternTimingLinkRef(id string) *VehicleJourneyTimingLink {
	for i, timingLink := range v.VehicleJourneyTimingLinks {
		if timingLink.JourneyPatternTimingLinkRef == id {
			return &v.VehicleJourneyTimingLinks[i]
		}
	}

	return nil
}

type VehicleJourneyTimingLink struct {
	ID string `xml:"id,attr"`

	JourneyPatternTimingLinkRef string
	RunTime                     string

	From StopUsage
	To   StopUsage
}

type Frequency struct {
	EndTime  string
	Interval *FrequencyInterval
}

type FrequencyInterval struct {
	ScheduledFrequency string
}

// FlexibleServiceTimes requires at least one ServicePeriod or an
// AllDayService marker.
type FlexibleServiceTimes struct {
	ServicePeriods []ServicePeriod `xml:"ServicePeriod"`
	AllDayService  *struct{}
}

func (t *FlexibleServiceTimes) Validate() error {
	if len(t.ServicePeriods) == 0 && t.AllDayService == nil {
		return fmt.Errorf("FlexibleServiceTimes requires a ServicePeriod or AllDayService")
	}

	return nil
}

type ServicePeriod struct {
	StartTime string
	EndTime   string
}

// ExpandFrequencies duplicates each frequency-based journey once per
// scheduled interval departure, the same trick the standard importer uses
// so downstream code only ever sees discrete departures.
func ExpandFrequencies(journeys []*VehicleJourney) []*VehicleJourney {
	expanded := journeys

	for _, journey := range journeys {
		if journey.Frequency == nil || journey.Frequency.Interval == nil {
			continue
		}

		departureTime, _ := time.Parse("15:04:05", journey.DepartureTime)
		endTime, _ := time.Parse("15:04:05", journey.Frequency.EndTime)
		interval, err := iso8601.ParseISO8601(journey.Frequency.Interval.ScheduledFrequency)
		if err != nil {
			log.Error().Err(err).Str("journey", journey.VehicleJourneyCode).Msg("Unparseable scheduled frequency")
			continue
		}

		for next := interval.Shift(departureTime); next.Sub(endTime) <= 0; next = interval.Shift(next) {
			var copied VehicleJourney
			if err := copier.CopyWithOption(&copied, *journey, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
				log.Error().Err(err).Str("journey", journey.VehicleJourneyCode).Msg("Failed to copy frequency journey")
				continue
			}

			copied.DepartureTime = next.Format("15:04:05")
			copied.VehicleJourneyCode = fmt.Sprintf("%s-%s", copied.VehicleJourneyCode, copied.DepartureTime)
			copied.Frequency = nil

			expanded = append(expanded, &copied)
		}
	}

	return expanded
}
