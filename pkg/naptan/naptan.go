// Package naptan loads the national NaPTAN stop-point registry into the
// key-value cache and answers stop lookups for the rest of the pipeline.
package naptan

import (
	"fmt"

	"github.com/paulcager/osgridref"
	"github.com/rs/zerolog/log"
)

const DateTimeFormat = "2006-01-02T15:04:05"

type NaPTAN struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`
	SchemaVersion        string `xml:",attr"`
}

type StopPoint struct {
	CreationDateTime     string `xml:",attr" json:"-"`
	ModificationDateTime string `xml:",attr" json:"modificationDateTime"`
	Status               string `xml:",attr" json:"status"`
	Modification         string `xml:",attr" json:"-"`

	AtcoCode              string `json:"atcoCode"`
	NaptanCode            string `json:"naptanCode"`
	AdministrativeAreaRef string `json:"administrativeAreaRef"`

	Descriptor *StopPointDescriptor `json:"descriptor"`

	NptgLocalityRef string    `xml:"Place>NptgLocalityRef" json:"localityRef"`
	Location        *Location `xml:"Place>Location" json:"location"`

	StopType       string `xml:"StopClassification>StopType" json:"stopType"`
	BusStopType    string `xml:"StopClassification>OnStreet>Bus>BusStopType" json:"busStopType,omitempty"`
	BusStopBearing string `xml:"StopClassification>OnStreet>Bus>MarkedPoint>Bearing>CompassPoint" json:"busStopBearing,omitempty"`

	StopAreas []StopAreaRef `xml:"StopAreas>StopAreaRef" json:"stopAreas,omitempty"`
}

type StopPointDescriptor struct {
	CommonName      string `json:"commonName"`
	ShortCommonName string `json:"shortCommonName,omitempty"`
	Landmark        string `json:"landmark,omitempty"`
	Street          string `json:"street,omitempty"`
	Indicator       string `json:"indicator,omitempty"`
}

type StopAreaRef struct {
	Status string `xml:",attr" json:"-"`

	StopAreaCode string `xml:",chardata" json:"stopAreaCode"`
}

// Active reports whether the record should be loaded at all. Deleted and
// inactive stop points stay out of the cache.
func (sp *StopPoint) Active() bool {
	return sp.Status == "active" && sp.Modification != "delete"
}

type Location struct {
	GridType  string  `json:"-"`
	Easting   string  `json:"easting,omitempty"`
	Northing  string  `json:"northing,omitempty"`
	Longitude float64 `xml:"Translation>Longitude" json:"longitude"`
	Latitude  float64 `xml:"Translation>Latitude" json:"latitude"`
}

// UpdateCoordinates derives lat/lon from the OS grid reference when the
// source record only carries easting/northing.
func (l *Location) UpdateCoordinates() {
	if l.Latitude != 0 && l.Longitude != 0 {
		return
	}
	if l.Easting == "" || l.Northing == "" {
		return
	}

	gridRef, err := osgridref.ParseOsGridRef(fmt.Sprintf("%s,%s", l.Easting, l.Northing))
	if err != nil {
		log.Debug().Str("easting", l.Easting).Str("northing", l.Northing).Err(err).Msg("Unparseable grid reference")
		return
	}

	l.Latitude, l.Longitude = gridRef.ToLatLon()
}
