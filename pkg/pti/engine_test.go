package pti

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegions struct {
	scottish bool
}

func (f *fakeRegions) IsScottish(ctx context.Context, serviceRef string) (bool, error) {
	return f.scottish, nil
}

func newTestEngine(t *testing.T, scottish bool) *Engine {
	t.Helper()

	ruleSet, err := DefaultRuleSet()
	require.NoError(t, err)

	engine, err := NewEngine(ruleSet, &fakeRegions{scottish: scottish})
	require.NoError(t, err)

	return engine
}

func parseTestDocument(t *testing.T, source string, filename string) *Document {
	t.Helper()

	doc, err := ParseDocument(strings.NewReader(source), filename)
	require.NoError(t, err)
	return doc
}

const cleanStandardDocument = `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00">
  <StopPoints>
    <AnnotatedStopPointRef><StopPointRef>490000001A</StopPointRef></AnnotatedStopPointRef>
    <AnnotatedStopPointRef><StopPointRef>490000002B</StopPointRef></AnnotatedStopPointRef>
  </StopPoints>
  <Operators>
    <Operator id="O1">
      <NationalOperatorCode>FLIX</NationalOperatorCode>
      <LicenceNumber>PB1234567</LicenceNumber>
    </Operator>
  </Operators>
  <JourneyPatternSections>
    <JourneyPatternSection id="JPS1">
      <JourneyPatternTimingLink id="TL1">
        <From><StopPointRef>490000001A</StopPointRef></From>
        <To><StopPointRef>490000002B</StopPointRef></To>
        <RunTime>PT5M</RunTime>
      </JourneyPatternTimingLink>
    </JourneyPatternSection>
  </JourneyPatternSections>
  <Services>
    <Service>
      <ServiceCode>UZ000FLIX:UK045</ServiceCode>
      <Mode>coach</Mode>
      <Lines>
        <Line id="FLIX:UZ000FLIX:UK045:45"><LineName>45</LineName></Line>
      </Lines>
      <OperatingProfile>
        <RegularDayType><DaysOfWeek><Monday/></DaysOfWeek></RegularDayType>
        <BankHolidayOperation>
          <DaysOfNonOperation><AllBankHolidays/></DaysOfNonOperation>
        </BankHolidayOperation>
      </OperatingProfile>
      <StandardService>
        <JourneyPattern id="JP1"><JourneyPatternSectionRefs>JPS1</JourneyPatternSectionRefs></JourneyPattern>
      </StandardService>
    </Service>
  </Services>
  <VehicleJourneys>
    <VehicleJourney>
      <VehicleJourneyCode>VJ1</VehicleJourneyCode>
      <JourneyPatternRef>JP1</JourneyPatternRef>
      <DepartureTime>09:00:00</DepartureTime>
    </VehicleJourney>
  </VehicleJourneys>
</TransXChange>`

func TestCheckCleanDocument(t *testing.T) {
	engine := newTestEngine(t, false)
	doc := parseTestDocument(t, cleanStandardDocument, "clean.xml")

	assert.False(t, doc.Flexible)
	assert.Equal(t, "UZ000FLIX:UK045", doc.ServiceRef)

	violations, err := engine.Check(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCheckReportsViolationsWithoutHalting(t *testing.T) {
	// bad licence, unchained timing links, unresolvable stop ref
	document := `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00">
  <StopPoints>
    <AnnotatedStopPointRef><StopPointRef>490000001A</StopPointRef></AnnotatedStopPointRef>
    <AnnotatedStopPointRef><StopPointRef>490000002B</StopPointRef></AnnotatedStopPointRef>
  </StopPoints>
  <Operators>
    <Operator id="O1"><LicenceNumber>NOTALICENCE</LicenceNumber></Operator>
  </Operators>
  <JourneyPatternSections>
    <JourneyPatternSection id="JPS1">
      <JourneyPatternTimingLink id="TL1">
        <From><StopPointRef>490000001A</StopPointRef></From>
        <To><StopPointRef>490000002B</StopPointRef></To>
        <RunTime>PT5M</RunTime>
      </JourneyPatternTimingLink>
      <JourneyPatternTimingLink id="TL2">
        <From><StopPointRef>490000009Z</StopPointRef></From>
        <To><StopPointRef>490000001A</StopPointRef></To>
        <RunTime>PT5M</RunTime>
      </JourneyPatternTimingLink>
    </JourneyPatternSection>
  </JourneyPatternSections>
  <Services>
    <Service>
      <ServiceCode>UZ000FLIX:UK045</ServiceCode>
      <Lines>
        <Line id="FLIX:UZ000FLIX:UK045:45"><LineName>45</LineName></Line>
      </Lines>
      <OperatingProfile>
        <BankHolidayOperation>
          <DaysOfNonOperation><AllBankHolidays/></DaysOfNonOperation>
        </BankHolidayOperation>
      </OperatingProfile>
      <StandardService>
        <JourneyPattern id="JP1"><JourneyPatternSectionRefs>JPS1</JourneyPatternSectionRefs></JourneyPattern>
      </StandardService>
    </Service>
  </Services>
  <VehicleJourneys>
    <VehicleJourney>
      <VehicleJourneyCode>VJ1</VehicleJourneyCode>
      <JourneyPatternRef>JP1</JourneyPatternRef>
      <DepartureTime>09:00:00</DepartureTime>
    </VehicleJourney>
  </VehicleJourneys>
</TransXChange>`

	engine := newTestEngine(t, false)
	doc := parseTestDocument(t, document, "dirty.xml")

	violations, err := engine.Check(context.Background(), doc)
	require.NoError(t, err)

	byObservation := map[int]Violation{}
	for _, v := range violations {
		byObservation[v.ObservationNumber] = v
	}

	licence, ok := byObservation[7]
	require.True(t, ok, "expected licence violation")
	assert.Equal(t, "LicenceNumber", licence.ElementName)
	assert.Equal(t, "NOTALICENCE", licence.ElementText)
	assert.Equal(t, "dirty.xml", licence.Filename)
	assert.Greater(t, licence.Line, 1)

	_, ok = byObservation[17]
	assert.True(t, ok, "expected timing-link chain violation")

	stopRef, ok := byObservation[14]
	require.True(t, ok, "expected stop-ref violation")
	assert.Equal(t, "490000009Z", stopRef.ElementText)
}

func TestCheckStopsAtFirstFailedRulePerElement(t *testing.T) {
	document := `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00">
  <Services>
    <Service>
      <ServiceCode></ServiceCode>
      <StandardService/>
    </Service>
  </Services>
</TransXChange>`

	engine := newTestEngine(t, false)
	doc := parseTestDocument(t, document, "empty-code.xml")

	violations, err := engine.Check(context.Background(), doc)
	require.NoError(t, err)

	// both rules of the service-code observation fail for this element but
	// only the first produces a violation
	count := 0
	for _, v := range violations {
		if v.ObservationNumber == 3 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCheckServiceTypeFilter(t *testing.T) {
	document := `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00">
  <Services>
    <Service>
      <ServiceCode>PF0000459:134</ServiceCode>
      <Lines>
        <Line id="CALL:PF0000459:134:53M"><LineName>53M</LineName></Line>
      </Lines>
      <OperatingProfile>
        <BankHolidayOperation>
          <DaysOfNonOperation><AllBankHolidays/></DaysOfNonOperation>
        </BankHolidayOperation>
      </OperatingProfile>
      <FlexibleService>
        <FlexibleJourneyPattern id="JP1"/>
      </FlexibleService>
    </Service>
  </Services>
  <VehicleJourneys>
    <FlexibleVehicleJourney>
      <VehicleJourneyCode>VJ1</VehicleJourneyCode>
    </FlexibleVehicleJourney>
  </VehicleJourneys>
</TransXChange>`

	engine := newTestEngine(t, false)
	doc := parseTestDocument(t, document, "flexible.xml")
	require.True(t, doc.Flexible)

	violations, err := engine.Check(context.Background(), doc)
	require.NoError(t, err)

	var numbers []int
	for _, v := range violations {
		numbers = append(numbers, v.ObservationNumber)
	}

	// flexible journey without service times fails the flexible-only
	// observation; standard-only observations never ran
	assert.Contains(t, numbers, 30)
	assert.NotContains(t, numbers, 21)
	assert.NotContains(t, numbers, 17)
}

func TestCheckFlexibleByClassificationOnly(t *testing.T) {
	// no FlexibleService block; the classification alone marks the
	// service flexible
	document := `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00">
  <Services>
    <Service>
      <ServiceCode>PF0000459:134</ServiceCode>
      <Lines>
        <Line id="CALL:PF0000459:134:53M"><LineName>53M</LineName></Line>
      </Lines>
      <ServiceClassification>
        <Flexible/>
      </ServiceClassification>
      <OperatingProfile>
        <BankHolidayOperation>
          <DaysOfNonOperation><AllBankHolidays/></DaysOfNonOperation>
        </BankHolidayOperation>
      </OperatingProfile>
    </Service>
  </Services>
  <VehicleJourneys>
    <FlexibleVehicleJourney>
      <VehicleJourneyCode>VJ1</VehicleJourneyCode>
    </FlexibleVehicleJourney>
  </VehicleJourneys>
</TransXChange>`

	engine := newTestEngine(t, false)
	doc := parseTestDocument(t, document, "classified.xml")
	require.True(t, doc.Flexible)

	violations, err := engine.Check(context.Background(), doc)
	require.NoError(t, err)

	var numbers []int
	for _, v := range violations {
		numbers = append(numbers, v.ObservationNumber)
	}

	assert.NotContains(t, numbers, 21)
	assert.NotContains(t, numbers, 17)
}

func TestBankHolidayRegionalVariants(t *testing.T) {
	document := `<?xml version="1.0" encoding="utf-8"?>
<TransXChange CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00">
  <Services>
    <Service>
      <ServiceCode>PF0000459:134</ServiceCode>
      <OperatingProfile>
        <BankHolidayOperation>
          <DaysOfOperation>
            <GoodFriday/><EasterMonday/><MayDay/><SpringBank/>
            <LateSummerBankHolidayNotScotland/>
          </DaysOfOperation>
          <DaysOfNonOperation>
            <NewYearsDay/><ChristmasDay/><BoxingDay/>
            <ChristmasDayHoliday/><BoxingDayHoliday/><NewYearsDayHoliday/>
          </DaysOfNonOperation>
        </BankHolidayOperation>
      </OperatingProfile>
      <StandardService/>
    </Service>
  </Services>
</TransXChange>`

	hasHolidayViolation := func(scottish bool) bool {
		engine := newTestEngine(t, scottish)
		doc := parseTestDocument(t, document, "holidays.xml")

		violations, err := engine.Check(context.Background(), doc)
		require.NoError(t, err)

		for _, v := range violations {
			if v.ObservationNumber == 25 {
				return true
			}
		}
		return false
	}

	// the listed days cover the English calendar but miss the Scottish one
	assert.False(t, hasHolidayViolation(false))
	assert.True(t, hasHolidayViolation(true))
}

func TestLoadRuleSetRejectsMalformedObservations(t *testing.T) {
	_, err := LoadRuleSet(strings.NewReader(`observations:
  - number: 1
    context: "//Service"
    rules: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rules")

	_, err = LoadRuleSet(strings.NewReader(`observations:
  - number: 2
    service_type: Express
    context: "//Service"
    rules:
      - test: "true"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service type")
}
