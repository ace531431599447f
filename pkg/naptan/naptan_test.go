package naptan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const naptanDocument = `<?xml version="1.0" encoding="utf-8"?>
<NaPTAN CreationDateTime="2024-01-01T00:00:00" ModificationDateTime="2024-06-01T00:00:00" SchemaVersion="2.4">
  <StopPoints>
    <StopPoint CreationDateTime="2020-01-01T00:00:00" ModificationDateTime="2024-01-01T00:00:00" Status="active" Modification="revise">
      <AtcoCode>490000001A</AtcoCode>
      <NaptanCode>lonabcd</NaptanCode>
      <Descriptor><CommonName>High Street</CommonName><Indicator>Stop A</Indicator></Descriptor>
      <Place>
        <NptgLocalityRef>E0034000</NptgLocalityRef>
        <Location>
          <Translation><Longitude>-0.1276</Longitude><Latitude>51.5072</Latitude></Translation>
        </Location>
      </Place>
      <StopClassification>
        <StopType>BCT</StopType>
        <OnStreet><Bus><BusStopType>MKD</BusStopType><MarkedPoint><Bearing><CompassPoint>N</CompassPoint></Bearing></MarkedPoint></Bus></OnStreet>
      </StopClassification>
      <StopAreas><StopAreaRef Status="active">490G0001</StopAreaRef></StopAreas>
    </StopPoint>
    <StopPoint Status="active" Modification="new">
      <AtcoCode>490000002B</AtcoCode>
      <NaptanCode>lonefgh</NaptanCode>
      <Descriptor><CommonName>Station Road</CommonName></Descriptor>
      <Place>
        <Location>
          <GridType>UKOS</GridType>
          <Easting>530047</Easting>
          <Northing>180380</Northing>
        </Location>
      </Place>
      <StopClassification><StopType>BCT</StopType></StopClassification>
    </StopPoint>
    <StopPoint Status="inactive" Modification="revise">
      <AtcoCode>490000003C</AtcoCode>
      <Descriptor><CommonName>Closed Stop</CommonName></Descriptor>
    </StopPoint>
    <StopPoint Status="active" Modification="delete">
      <AtcoCode>490000004D</AtcoCode>
      <Descriptor><CommonName>Deleted Stop</CommonName></Descriptor>
    </StopPoint>
  </StopPoints>
</NaPTAN>`

func TestStreamStopPointsFiltersInactive(t *testing.T) {
	var yielded []*StopPoint

	processed, errored, err := StreamStopPoints(strings.NewReader(naptanDocument), 25, func(batch []*StopPoint) error {
		yielded = append(yielded, batch...)
		return nil
	})
	require.NoError(t, err)

	// only the two active non-deleted stop points count
	assert.Equal(t, 2, processed)
	assert.Equal(t, 0, errored)
	require.Len(t, yielded, 2)

	assert.Equal(t, "490000001A", yielded[0].AtcoCode)
	assert.Equal(t, "lonabcd", yielded[0].NaptanCode)
	assert.Equal(t, "High Street", yielded[0].Descriptor.CommonName)
	assert.Equal(t, "BCT", yielded[0].StopType)
	assert.Equal(t, "N", yielded[0].BusStopBearing)
	require.Len(t, yielded[0].StopAreas, 1)
	assert.Equal(t, "490G0001", yielded[0].StopAreas[0].StopAreaCode)
}

func TestStreamStopPointsBatchesBySize(t *testing.T) {
	var batchSizes []int

	processed, errored, err := StreamStopPoints(strings.NewReader(naptanDocument), 1, func(batch []*StopPoint) error {
		batchSizes = append(batchSizes, len(batch))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, processed)
	assert.Equal(t, 0, errored)
	assert.Equal(t, []int{1, 1}, batchSizes)
}

func TestStreamStopPointsCountsEmitFailures(t *testing.T) {
	processed, errored, err := StreamStopPoints(strings.NewReader(naptanDocument), 25, func(batch []*StopPoint) error {
		return assert.AnError
	})
	require.NoError(t, err)

	// every active stop point is accounted for exactly once
	assert.Equal(t, 0, processed)
	assert.Equal(t, 2, errored)
	assert.Equal(t, 2, processed+errored)
}

func TestUpdateCoordinatesFromGridReference(t *testing.T) {
	location := &Location{GridType: "UKOS", Easting: "530047", Northing: "180380"}
	location.UpdateCoordinates()

	assert.InDelta(t, 51.507, location.Latitude, 0.01)
	assert.InDelta(t, -0.127, location.Longitude, 0.01)
}

func TestUpdateCoordinatesKeepsExistingLatLon(t *testing.T) {
	location := &Location{Easting: "530047", Northing: "180380", Latitude: 55.95, Longitude: -3.19}
	location.UpdateCoordinates()

	assert.Equal(t, 55.95, location.Latitude)
	assert.Equal(t, -3.19, location.Longitude)
}

const naptanCSV = `ATCOCode,NaptanCode,CommonName,Street,Indicator,LocalityName,Easting,Northing,Longitude,Latitude,StopType,BusStopType,Status,Modification
490000001A,lonabcd,High Street,High Street,Stop A,Westminster,530047,180380,-0.1276,51.5072,BCT,MKD,active,rev
490000002B,lonefgh,Station Road,Station Road,Stop B,Camden,529500,184000,-0.1350,51.5390,BCT,MKD,active,new
490000003C,lonijkl,Closed Stop,Back Lane,,Camden,529000,183000,-0.1400,51.5300,BCT,MKD,inactive,rev
`

func TestLoadCSVIndexesActiveRows(t *testing.T) {
	index, err := LoadCSV(strings.NewReader(naptanCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, index.Len())
	assert.Nil(t, index.StopByATCO("490000003C"))

	stop := index.StopByATCO("490000001A")
	require.NotNil(t, stop)
	assert.Equal(t, "High Street", stop.CommonName)
}

func TestNearestStop(t *testing.T) {
	index, err := LoadCSV(strings.NewReader(naptanCSV))
	require.NoError(t, err)

	nearest := index.NearestStop(530000, 180500)
	require.NotNil(t, nearest)
	assert.Equal(t, "490000001A", nearest.AtcoCode)

	nearest = index.NearestStop(529400, 184100)
	require.NotNil(t, nearest)
	assert.Equal(t, "490000002B", nearest.AtcoCode)
}

func TestStopsByNaptanCodes(t *testing.T) {
	index, err := LoadCSV(strings.NewReader(naptanCSV))
	require.NoError(t, err)

	stops := index.StopsByNaptanCodes([]string{"lonabcd", "unknown", "lonefgh"})
	require.Len(t, stops, 2)
	assert.Equal(t, "490000001A", stops[0].AtcoCode)
	assert.Equal(t, "490000002B", stops[1].AtcoCode)
}
