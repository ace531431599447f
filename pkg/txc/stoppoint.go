package txc

// AnnotatedStopPointRef points at a NAPTAN stop defined elsewhere.
type AnnotatedStopPointRef struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	StopPointRef string
	CommonName   string
	Indicator    string
	LocalityName string
	Location     *Location
}

// StopPoint is a stop fully defined inside the document, used when the
// operator serves a stop not yet in NAPTAN.
type StopPoint struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	AtcoCode   string
	NaptanCode string

	CommonName      string `xml:"Descriptor>CommonName"`
	Indicator       string `xml:"Descriptor>Indicator"`
	NptgLocalityRef string `xml:"Place>NptgLocalityRef"`
	LocalityName    string `xml:"Place>LocalityName"`
	Location        *Location `xml:"Place>Location"`

	StopType string `xml:"StopClassification>StopType"`
}

type Location struct {
	ID string `xml:"id,attr"`

	Longitude float64
	Latitude  float64

	GridType string
	Easting  string
	Northing string

	TranslationLongitude float64 `xml:"Translation>Longitude"`
	TranslationLatitude  float64 `xml:"Translation>Latitude"`
}
