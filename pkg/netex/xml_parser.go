package netex

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ParseXML reads a NeTEx fares document, collecting only the elements the
// metadata aggregation cares about. Local-name matching keeps it indifferent
// to namespace prefixes.
func ParseXML(reader io.Reader) (*Document, error) {
	doc := Document{}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "decoding token: %s", err)
		} else if tok == nil {
			break
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			switch ty.Name.Local {
			case "PublicationDelivery":
				for _, attr := range ty.Attr {
					if attr.Name.Local == "version" {
						doc.SchemaVersion = attr.Value
					}
				}
			case "FareFrame":
				doc.FareFrameCount++
			case "ValidBetween":
				var validBetween struct {
					FromDate string
					ToDate   string
				}
				if err := d.DecodeElement(&validBetween, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable ValidBetween")
					continue
				}

				if from, err := time.Parse(DateTimeFormat, validBetween.FromDate); err == nil {
					if doc.ValidFrom == nil || from.Before(*doc.ValidFrom) {
						doc.ValidFrom = &from
					}
				}
				if to, err := time.Parse(DateTimeFormat, validBetween.ToDate); err == nil {
					if doc.ValidTo == nil || to.After(*doc.ValidTo) {
						doc.ValidTo = &to
					}
				}
			case "PreassignedFareProduct", "AmountOfPriceUnitProduct":
				var product FareProduct
				if err := d.DecodeElement(&product, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable fare product")
					continue
				}
				doc.FareProducts = append(doc.FareProducts, product)
			case "FareZone":
				var zone FareZone
				if err := d.DecodeElement(&zone, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable fare zone")
					continue
				}
				doc.FareZones = append(doc.FareZones, zone)
			case "Line":
				var line Line
				if err := d.DecodeElement(&line, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable line")
					continue
				}
				doc.Lines = append(doc.Lines, line)
			case "SalesOfferPackage":
				var pkg SalesOfferPackage
				if err := d.DecodeElement(&pkg, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable sales offer package")
					continue
				}
				doc.SalesOfferPackages = append(doc.SalesOfferPackages, pkg)
			case "UserProfile":
				var profile UserProfile
				if err := d.DecodeElement(&profile, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable user profile")
					continue
				}
				doc.UserProfiles = append(doc.UserProfiles, profile)
			case "ScheduledStopPoint":
				var stopPoint ScheduledStopPoint
				if err := d.DecodeElement(&stopPoint, &ty); err != nil {
					log.Error().Err(err).Msg("Skipping undecodable scheduled stop point")
					continue
				}
				doc.ScheduledStopPoints = append(doc.ScheduledStopPoints, stopPoint)
			}
		}
	}

	if doc.FareFrameCount == 0 {
		return nil, pipeline.NewValidationError(pipeline.ErrorNoDataFound, "document contains no fare frames")
	}

	return &doc, nil
}
