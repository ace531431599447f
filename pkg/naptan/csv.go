package naptan

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/tidwall/rtree"
)

// CSVStop is one row of the flattened NaPTAN CSV export.
type CSVStop struct {
	AtcoCode     string  `csv:"ATCOCode"`
	NaptanCode   string  `csv:"NaptanCode"`
	CommonName   string  `csv:"CommonName"`
	Street       string  `csv:"Street"`
	Indicator    string  `csv:"Indicator"`
	LocalityName string  `csv:"LocalityName"`
	Easting      float64 `csv:"Easting"`
	Northing     float64 `csv:"Northing"`
	Longitude    float64 `csv:"Longitude"`
	Latitude     float64 `csv:"Latitude"`
	StopType     string  `csv:"StopType"`
	BusStopType  string  `csv:"BusStopType"`
	Status       string  `csv:"Status"`
	Modification string  `csv:"Modification"`
}

// Index answers spatial and code lookups over the CSV export without
// touching the cache. Queries use the (easting, northing) plane directly
// since the export always carries grid coordinates.
type Index struct {
	tree         rtree.RTreeG[*CSVStop]
	byATCO       map[string]*CSVStop
	byNaptanCode map[string]*CSVStop
}

// LoadCSV parses the export and indexes every active row.
func LoadCSV(reader io.Reader) (*Index, error) {
	var rows []*CSVStop
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, err
	}

	index := &Index{
		byATCO:       map[string]*CSVStop{},
		byNaptanCode: map[string]*CSVStop{},
	}

	for _, row := range rows {
		if row.Status != "active" || row.Modification == "del" {
			continue
		}

		point := [2]float64{row.Easting, row.Northing}
		index.tree.Insert(point, point, row)
		index.byATCO[row.AtcoCode] = row
		if row.NaptanCode != "" {
			index.byNaptanCode[row.NaptanCode] = row
		}
	}

	return index, nil
}

func (i *Index) Len() int {
	return len(i.byATCO)
}

// NearestStop returns the stop closest to the given grid coordinates, or
// nil when the index is empty.
func (i *Index) NearestStop(easting float64, northing float64) *CSVStop {
	point := [2]float64{easting, northing}

	var nearest *CSVStop
	i.tree.Nearby(
		rtree.BoxDist[float64, *CSVStop](point, point, nil),
		func(min, max [2]float64, stop *CSVStop, dist float64) bool {
			nearest = stop
			return false
		},
	)

	return nearest
}

func (i *Index) StopByATCO(atcoCode string) *CSVStop {
	return i.byATCO[atcoCode]
}

func (i *Index) StopsByNaptanCodes(naptanCodes []string) []*CSVStop {
	var stops []*CSVStop
	for _, code := range naptanCodes {
		if stop, ok := i.byNaptanCode[code]; ok {
			stops = append(stops, stop)
		}
	}
	return stops
}
