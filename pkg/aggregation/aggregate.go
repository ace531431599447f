package aggregation

import (
	"sort"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog/log"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/netex"
	"github.com/bodspipeline/bodspipeline/pkg/util"
)

// FileMetadata is the per-file row a fares stage records after parsing.
type FileMetadata struct {
	Filename string `json:"filename"`

	NumOfFareProducts       int `json:"numOfFareProducts"`
	NumOfFareZones          int `json:"numOfFareZones"`
	NumOfLines              int `json:"numOfLines"`
	NumOfSalesOfferPackages int `json:"numOfSalesOfferPackages"`
	NumOfUserProfiles       int `json:"numOfUserProfiles"`
	NumOfTripProducts       int `json:"numOfTripProducts"`

	NationalOperatorCodes []string `json:"nationalOperatorCodes,omitempty"`
	LineIDs               []string `json:"lineIds,omitempty"`
	LineNames             []string `json:"lineNames,omitempty"`
	ProductTypes          []string `json:"productTypes,omitempty"`
	UserTypes             []string `json:"userTypes,omitempty"`
	StopPointIDs          []string `json:"stopPointIds,omitempty"`

	ValidFrom *time.Time `json:"validFrom,omitempty"`
	ValidTo   *time.Time `json:"validTo,omitempty"`

	SchemaVersion string `json:"schemaVersion"`
}

// FromNetex summarises one parsed fares document.
func FromNetex(doc *netex.Document, filename string) *FileMetadata {
	metadata := &FileMetadata{
		Filename: filename,

		NumOfFareProducts:       len(doc.FareProducts),
		NumOfFareZones:          len(doc.FareZones),
		NumOfLines:              len(doc.Lines),
		NumOfSalesOfferPackages: len(doc.SalesOfferPackages),
		NumOfUserProfiles:       len(doc.UserProfiles),

		ProductTypes: doc.ProductTypes(),
		UserTypes:    doc.UserTypes(),
		StopPointIDs: doc.StopPointIDs(),

		ValidFrom: doc.ValidFrom,
		ValidTo:   doc.ValidTo,

		SchemaVersion: doc.SchemaVersion,
	}

	for _, product := range doc.FareProducts {
		if product.TripType != "" {
			metadata.NumOfTripProducts++
		}
	}

	for _, line := range doc.Lines {
		if line.ID != "" {
			metadata.LineIDs = append(metadata.LineIDs, line.ID)
		}
		if line.Name != "" {
			metadata.LineNames = append(metadata.LineNames, line.Name)
		}
	}

	return metadata
}

// Aggregate reduces the task's per-file rows into the dataset-level fares
// record and the per-file catalogue entries. Counts sum, date ranges take
// the min/max across files, string sets union, and the schema version is
// the minimum seen.
func Aggregate(revisionID int, files []FileMetadata) (*catalogue.FaresMetadata, []catalogue.DataCatalogueEntry) {
	aggregate := &catalogue.FaresMetadata{RevisionID: revisionID}

	var stopIDs []string
	var minVersion *version.Version

	entries := make([]catalogue.DataCatalogueEntry, 0, len(files))

	for _, file := range files {
		aggregate.NumOfFareProducts += file.NumOfFareProducts
		aggregate.NumOfFareZones += file.NumOfFareZones
		aggregate.NumOfLines += file.NumOfLines
		aggregate.NumOfSalesOfferPackages += file.NumOfSalesOfferPackages
		aggregate.NumOfUserProfiles += file.NumOfUserProfiles
		aggregate.NumOfTripProducts += file.NumOfTripProducts

		if file.ValidFrom != nil && (aggregate.ValidFrom == nil || file.ValidFrom.Before(*aggregate.ValidFrom)) {
			aggregate.ValidFrom = file.ValidFrom
		}
		if file.ValidTo != nil && (aggregate.ValidTo == nil || file.ValidTo.After(*aggregate.ValidTo)) {
			aggregate.ValidTo = file.ValidTo
		}

		stopIDs = append(stopIDs, file.StopPointIDs...)

		if file.SchemaVersion != "" {
			parsed, err := version.NewVersion(file.SchemaVersion)
			if err != nil {
				log.Warn().Str("filename", file.Filename).Str("schema_version", file.SchemaVersion).Err(err).Msg("Unparseable schema version")
			} else if minVersion == nil || parsed.LessThan(minVersion) {
				minVersion = parsed
				aggregate.SchemaVersion = file.SchemaVersion
			}
		}

		entries = append(entries, catalogue.DataCatalogueEntry{
			RevisionID:           revisionID,
			Filename:             file.Filename,
			NationalOperatorCode: file.NationalOperatorCodes,
			LineIDs:              file.LineIDs,
			LineNames:            file.LineNames,
			ProductTypes:         file.ProductTypes,
			UserTypes:            file.UserTypes,
			ValidFrom:            file.ValidFrom,
			ValidTo:              file.ValidTo,
		})
	}

	aggregate.StopIDs = util.RemoveDuplicateStrings(stopIDs, nil)
	sort.Strings(aggregate.StopIDs)

	return aggregate, entries
}
