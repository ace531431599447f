package txc

import (
	"strings"
	"testing"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standardServiceDocument = `<?xml version="1.0" encoding="utf-8"?>
<TransXChange xmlns="http://www.transxchange.org.uk/" CreationDateTime="2023-01-01T10:00:00" ModificationDateTime="2023-06-01T10:30:00" SchemaVersion="2.4" RevisionNumber="3" FileName="f.xml">
  <StopPoints>
    <AnnotatedStopPointRef>
      <StopPointRef>0170SGA56570</StopPointRef>
      <CommonName>High Street</CommonName>
    </AnnotatedStopPointRef>
    <AnnotatedStopPointRef>
      <StopPointRef>0170SGA56571</StopPointRef>
      <CommonName>Corn Street</CommonName>
    </AnnotatedStopPointRef>
  </StopPoints>
  <RouteSections>
    <RouteSection id="RS1">
      <RouteLink id="RL1">
        <From><StopPointRef>0170SGA56570</StopPointRef></From>
        <To><StopPointRef>0170SGA56571</StopPointRef></To>
        <Distance>400</Distance>
      </RouteLink>
    </RouteSection>
  </RouteSections>
  <Routes>
    <Route id="R1">
      <Description>Outbound</Description>
      <RouteSectionRef>RS1</RouteSectionRef>
    </Route>
  </Routes>
  <JourneyPatternSections>
    <JourneyPatternSection id="JPS1">
      <JourneyPatternTimingLink id="JPTL1">
        <From SequenceNumber="1">
          <Activity>pickUp</Activity>
          <StopPointRef>0170SGA56570</StopPointRef>
        </From>
        <To SequenceNumber="2">
          <Activity>setDown</Activity>
          <StopPointRef>0170SGA56571</StopPointRef>
        </To>
        <RouteLinkRef>RL1</RouteLinkRef>
        <RunTime>PT5M</RunTime>
      </JourneyPatternTimingLink>
    </JourneyPatternSection>
  </JourneyPatternSections>
  <Operators>
    <Operator id="O1">
      <NationalOperatorCode>FLIX</NationalOperatorCode>
      <OperatorShortName>FlixBus</OperatorShortName>
      <LicenceNumber>PH2024531</LicenceNumber>
    </Operator>
  </Operators>
  <Services>
    <Service>
      <ServiceCode>UZ000FLIX:UK045</ServiceCode>
      <RegisteredOperatorRef>O1</RegisteredOperatorRef>
      <PublicUse>true</PublicUse>
      <OperatingPeriod>
        <StartDate>2023-06-11</StartDate>
        <EndDate>2023-12-09</EndDate>
      </OperatingPeriod>
      <Lines>
        <Line id="UK045:0">
          <LineName>UK045</LineName>
        </Line>
      </Lines>
      <StandardService>
        <Origin>London</Origin>
        <Destination>Bristol</Destination>
        <JourneyPattern id="JP1">
          <Direction>outbound</Direction>
          <RouteRef>R1</RouteRef>
          <JourneyPatternSectionRefs>JPS1</JourneyPatternSectionRefs>
        </JourneyPattern>
        <JourneyPattern id="JP2">
          <Direction>inbound</Direction>
          <RouteRef>R1</RouteRef>
          <JourneyPatternSectionRefs>JPS1</JourneyPatternSectionRefs>
        </JourneyPattern>
      </StandardService>
    </Service>
  </Services>
  <VehicleJourneys>
    <VehicleJourney>
      <OperatorRef>O1</OperatorRef>
      <VehicleJourneyCode>VJ1</VehicleJourneyCode>
      <ServiceRef>UZ000FLIX:UK045</ServiceRef>
      <LineRef>UK045:0</LineRef>
      <JourneyPatternRef>JP1</JourneyPatternRef>
      <DepartureTime>09:00:00</DepartureTime>
    </VehicleJourney>
    <VehicleJourney>
      <OperatorRef>O1</OperatorRef>
      <VehicleJourneyCode>VJ2</VehicleJourneyCode>
      <ServiceRef>UZ000FLIX:UK045</ServiceRef>
      <LineRef>UK045:0</LineRef>
      <VehicleJourneyRef>VJ1</VehicleJourneyRef>
      <DepartureTime>10:00:00</DepartureTime>
    </VehicleJourney>
  </VehicleJourneys>
</TransXChange>`

const flexibleServiceDocument = `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2023-01-01T10:00:00" ModificationDateTime="2023-01-02T10:00:00" SchemaVersion="2.4" RevisionNumber="1">
  <StopPoints>
    <AnnotatedStopPointRef>
      <StopPointRef>270002700155</StopPointRef>
      <CommonName>Flexible Zone</CommonName>
    </AnnotatedStopPointRef>
  </StopPoints>
  <Operators>
    <Operator id="O1">
      <NationalOperatorCode>ABCD</NationalOperatorCode>
    </Operator>
  </Operators>
  <Services>
    <Service>
      <ServiceCode>PB0002032:467</ServiceCode>
      <RegisteredOperatorRef>O1</RegisteredOperatorRef>
      <ServiceClassification>
        <Flexible/>
      </ServiceClassification>
      <FlexibleService>
        <Origin>Market Rasen</Origin>
        <Destination>Market Rasen</Destination>
        <FlexibleJourneyPattern id="JP1">
          <Direction>outbound</Direction>
          <BookingArrangements>
            <Description>The booking office is open for all advance booking Monday to Friday 8:30am to 6:30pm</Description>
            <Phone>
              <TelNationalNumber>0345 234 3344</TelNationalNumber>
            </Phone>
          </BookingArrangements>
        </FlexibleJourneyPattern>
      </FlexibleService>
    </Service>
  </Services>
  <VehicleJourneys>
    <FlexibleVehicleJourney>
      <VehicleJourneyCode>VJ1</VehicleJourneyCode>
      <ServiceRef>PB0002032:467</ServiceRef>
      <JourneyPatternRef>JP1</JourneyPatternRef>
      <FlexibleServiceTimes>
        <ServicePeriod>
          <StartTime>07:00:00</StartTime>
          <EndTime>19:00:00</EndTime>
        </ServicePeriod>
      </FlexibleServiceTimes>
    </FlexibleVehicleJourney>
  </VehicleJourneys>
</TransXChange>`

func TestParseStandardService(t *testing.T) {
	doc, err := ParseXML(strings.NewReader(standardServiceDocument))
	require.NoError(t, err)

	require.Len(t, doc.Operators, 1)
	assert.Equal(t, "FLIX", doc.Operators[0].NationalOperatorCode)

	require.Len(t, doc.Services, 1)
	service := doc.Services[0]
	assert.Equal(t, "UZ000FLIX:UK045", service.ServiceCode)
	assert.False(t, service.IsFlexible())
	assert.Len(t, service.JourneyPatterns(), 2)

	require.Len(t, doc.RouteSections, 1)
	require.Len(t, doc.RouteSections[0].RouteLinks, 1)
	assert.Equal(t, "0170SGA56570", doc.RouteSections[0].RouteLinks[0].FromStop)
	assert.Equal(t, 400, doc.RouteSections[0].RouteLinks[0].Distance)

	require.Len(t, doc.JourneyPatternSections, 1)
	timingLink := doc.JourneyPatternSections[0].JourneyPatternTimingLinks[0]
	assert.Equal(t, "PT5M", timingLink.RunTime)
	assert.Equal(t, "0170SGA56570", timingLink.From.Ref())

	assert.Equal(t, 3, doc.RevisionNumber)
	assert.False(t, doc.IsFlexible())
}

func TestParseResolvesReferences(t *testing.T) {
	doc, err := ParseXML(strings.NewReader(standardServiceDocument))
	require.NoError(t, err)

	index, err := doc.BuildIndex()
	require.NoError(t, err)

	// VJ2 has no JourneyPatternRef of its own, only a VehicleJourneyRef
	service := index.Services["UZ000FLIX:UK045"]
	pattern, err := index.resolveJourneyPattern(index.VehicleJourneys["VJ2"], service, 0)
	require.NoError(t, err)
	assert.Equal(t, "JP1", pattern.ID)
}

func TestParseRejectsUnknownReferences(t *testing.T) {
	broken := strings.Replace(standardServiceDocument, "<RouteRef>R1</RouteRef>", "<RouteRef>R9</RouteRef>", 1)

	doc, err := ParseXML(strings.NewReader(broken))
	require.NoError(t, err)

	_, err = doc.BuildIndex()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown route R9")
}

func TestParseFlexibleService(t *testing.T) {
	doc, err := ParseXML(strings.NewReader(flexibleServiceDocument))
	require.NoError(t, err)

	require.Len(t, doc.Services, 1)
	service := doc.Services[0]
	assert.True(t, service.IsFlexible())

	require.NotNil(t, service.FlexibleService)
	require.Len(t, service.FlexibleService.FlexibleJourneyPatterns, 1)

	pattern := service.FlexibleService.FlexibleJourneyPatterns[0]
	require.NotNil(t, pattern.BookingArrangements)
	assert.Equal(t, "0345 234 3344", pattern.BookingArrangements.Phone)

	require.Len(t, doc.VehicleJourneys, 1)
	assert.True(t, doc.VehicleJourneys[0].IsFlexible())
	assert.True(t, doc.IsFlexible())
}

func TestParseNoOperators(t *testing.T) {
	empty := `<TransXChange CreationDateTime="2023-01-01T10:00:00" ModificationDateTime="2023-01-01T10:00:00" SchemaVersion="2.4"></TransXChange>`

	_, err := ParseXML(strings.NewReader(empty))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_DATA_FOUND")
}

func TestParseRejectsMalformedXML(t *testing.T) {
	mismatched := strings.Replace(standardServiceDocument, "</TransXChange>", "</Wrong>", 1)

	_, err := ParseXML(strings.NewReader(mismatched))
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrorXMLSyntax, pipeline.KindOf(err))
	assert.True(t, pipeline.IsValidation(err))
}

func TestParseRejectsTruncatedDocument(t *testing.T) {
	truncated := standardServiceDocument[:len(standardServiceDocument)/2]

	_, err := ParseXML(strings.NewReader(truncated))
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrorXMLSyntax, pipeline.KindOf(err))
}

func TestFlexibleVehicleJourneyWithoutTimesIsSkipped(t *testing.T) {
	broken := strings.Replace(flexibleServiceDocument,
		`<FlexibleServiceTimes>
        <ServicePeriod>
          <StartTime>07:00:00</StartTime>
          <EndTime>19:00:00</EndTime>
        </ServicePeriod>
      </FlexibleServiceTimes>`, "", 1)

	doc, err := ParseXML(strings.NewReader(broken))
	require.NoError(t, err)
	assert.Empty(t, doc.VehicleJourneys)
}

func TestExtractFileAttributes(t *testing.T) {
	doc, err := ParseXML(strings.NewReader(standardServiceDocument))
	require.NoError(t, err)

	attributes := doc.ExtractFileAttributes("f.xml", "abc123")

	assert.Equal(t, "f.xml", attributes.Filename)
	assert.Equal(t, "abc123", attributes.Hash)
	assert.Equal(t, "UZ000FLIX:UK045", attributes.ServiceCode)
	assert.Equal(t, 3, attributes.RevisionNumber)
	assert.Equal(t, "FLIX", attributes.NationalOperatorCode)
	assert.Equal(t, "PH2024531", attributes.LicenceNumber)
	assert.Equal(t, []string{"UK045"}, attributes.LineNames)
	assert.Equal(t, "London", attributes.Origin)
	assert.Equal(t, "Bristol", attributes.Destination)
	assert.True(t, attributes.PublicUse)
	assert.Equal(t, "bus", attributes.ServiceMode)

	require.NotNil(t, attributes.OperatingPeriodStartDate)
	assert.Equal(t, time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC), *attributes.OperatingPeriodStartDate)
	require.NotNil(t, attributes.OperatingPeriodEndDate)
}

func TestOperatingProfileParse(t *testing.T) {
	profile := OperatingProfile{XMLValue: `
		<RegularDayType>
			<DaysOfWeek>
				<Monday/>
				<Tuesday/>
			</DaysOfWeek>
		</RegularDayType>
		<BankHolidayOperation>
			<DaysOfNonOperation>
				<ChristmasDay/>
				<BoxingDay/>
			</DaysOfNonOperation>
		</BankHolidayOperation>`}

	require.NoError(t, profile.Parse())
	assert.Equal(t, []string{"Monday", "Tuesday"}, profile.RegularDayType)
	assert.Equal(t, []string{"ChristmasDay", "BoxingDay"}, profile.BankHolidayNonOperation)
	assert.False(t, profile.HolidaysOnly)
}

func TestOperatingProfileHolidaysOnlyExclusive(t *testing.T) {
	profile := OperatingProfile{XMLValue: `
		<RegularDayType>
			<HolidaysOnly/>
			<DaysOfWeek><Monday/></DaysOfWeek>
		</RegularDayType>`}

	require.Error(t, profile.Parse())
}

func TestBuildIndexParsesOperatingProfiles(t *testing.T) {
	withProfile := strings.Replace(standardServiceDocument, "<OperatingPeriod>",
		`<OperatingProfile>
        <RegularDayType>
          <DaysOfWeek><Monday/><Friday/></DaysOfWeek>
        </RegularDayType>
      </OperatingProfile>
      <OperatingPeriod>`, 1)

	doc, err := ParseXML(strings.NewReader(withProfile))
	require.NoError(t, err)

	_, err = doc.BuildIndex()
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Friday"}, doc.Services[0].OperatingProfile.RegularDayType)
}

func TestBuildIndexRejectsContradictoryOperatingProfile(t *testing.T) {
	withProfile := strings.Replace(standardServiceDocument, "<OperatingPeriod>",
		`<OperatingProfile>
        <RegularDayType>
          <HolidaysOnly/>
          <DaysOfWeek><Monday/></DaysOfWeek>
        </RegularDayType>
      </OperatingProfile>
      <OperatingPeriod>`, 1)

	doc, err := ParseXML(strings.NewReader(withProfile))
	require.NoError(t, err)

	_, err = doc.BuildIndex()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestExpandFrequencies(t *testing.T) {
	journeys := []*VehicleJourney{
		{
			VehicleJourneyCode: "VJ1",
			DepartureTime:      "09:00:00",
			Frequency: &Frequency{
				EndTime:  "10:00:00",
				Interval: &FrequencyInterval{ScheduledFrequency: "PT30M"},
			},
		},
	}

	expanded := ExpandFrequencies(journeys)

	require.Len(t, expanded, 3)
	assert.Equal(t, "VJ1-09:30:00", expanded[1].VehicleJourneyCode)
	assert.Equal(t, "VJ1-10:00:00", expanded[2].VehicleJourneyCode)
	assert.Nil(t, expanded[1].Frequency)
}
