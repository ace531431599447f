package netex

import (
	"strings"
	"testing"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const faresDocument = `<?xml version="1.0" encoding="utf-8"?>
<PublicationDelivery xmlns="http://www.netex.org.uk/netex" version="1.1">
  <dataObjects>
    <CompositeFrame id="epd:UK:ATOC:CompositeFrame">
      <ValidBetween>
        <FromDate>2023-01-01T00:00:00</FromDate>
        <ToDate>2023-12-31T00:00:00</ToDate>
      </ValidBetween>
      <frames>
        <ServiceFrame id="sf1">
          <lines>
            <Line id="l1"><Name>Line 45</Name><PublicCode>45</PublicCode></Line>
          </lines>
          <scheduledStopPoints>
            <ScheduledStopPoint id="atco:0170SGA56570"><Name>High Street</Name></ScheduledStopPoint>
          </scheduledStopPoints>
        </ServiceFrame>
        <FareFrame id="ff1">
          <fareZones>
            <FareZone id="fz1">
              <Name>Zone A</Name>
              <members>
                <ScheduledStopPointRef ref="atco:0170SGA56570"/>
                <ScheduledStopPointRef ref="atco:0170SGA56571"/>
              </members>
            </FareZone>
          </fareZones>
          <fareProducts>
            <PreassignedFareProduct id="fp1">
              <Name>Adult Single</Name>
              <ProductType>singleTrip</ProductType>
            </PreassignedFareProduct>
          </fareProducts>
          <salesOfferPackages>
            <SalesOfferPackage id="sop1"><Name>Onboard</Name></SalesOfferPackage>
          </salesOfferPackages>
        </FareFrame>
        <FareFrame id="ff2">
          <usageParameters>
            <UserProfile id="up1"><Name>Adult</Name><UserType>adult</UserType></UserProfile>
          </usageParameters>
        </FareFrame>
      </frames>
    </CompositeFrame>
  </dataObjects>
</PublicationDelivery>`

func TestParseFaresDocument(t *testing.T) {
	doc, err := ParseXML(strings.NewReader(faresDocument))
	require.NoError(t, err)

	assert.Equal(t, "1.1", doc.SchemaVersion)
	assert.Equal(t, 2, doc.FareFrameCount)
	assert.Len(t, doc.FareProducts, 1)
	assert.Len(t, doc.FareZones, 1)
	assert.Len(t, doc.Lines, 1)
	assert.Len(t, doc.SalesOfferPackages, 1)
	assert.Len(t, doc.UserProfiles, 1)

	assert.Equal(t, []string{"singleTrip"}, doc.ProductTypes())
	assert.Equal(t, []string{"adult"}, doc.UserTypes())

	require.NotNil(t, doc.ValidFrom)
	require.NotNil(t, doc.ValidTo)
	assert.Equal(t, 2023, doc.ValidFrom.Year())

	assert.Equal(t, []string{"atco:0170SGA56570", "atco:0170SGA56571"}, doc.StopPointIDs())
}

func TestParseRejectsMalformedXML(t *testing.T) {
	mismatched := strings.Replace(faresDocument, "</PublicationDelivery>", "</Wrong>", 1)

	_, err := ParseXML(strings.NewReader(mismatched))
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrorXMLSyntax, pipeline.KindOf(err))
}

func TestParseNoFareFrames(t *testing.T) {
	empty := `<PublicationDelivery version="1.1"><dataObjects></dataObjects></PublicationDelivery>`

	_, err := ParseXML(strings.NewReader(empty))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_DATA_FOUND")
}
