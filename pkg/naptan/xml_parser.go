package naptan

import (
	"encoding/xml"
	"io"

	"github.com/rs/zerolog/log"
)

// StreamStopPoints walks the NaPTAN document token by token, decoding one
// StopPoint element at a time so whole-file memory stays bounded whatever
// the file size. Active stop points accumulate into batches of batchSize
// and are handed to emit; the batch slice is never reused after emit
// returns, so emit may hold onto it.
//
// The returned counts cover active stop points only: processed were
// yielded to emit, errored failed to decode or were rejected by emit.
func StreamStopPoints(reader io.Reader, batchSize int, emit func(batch []*StopPoint) error) (processed int, errored int, err error) {
	decoder := xml.NewDecoder(reader)

	batch := make([]*StopPoint, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if emitErr := emit(batch); emitErr != nil {
			errored += len(batch)
			batch = make([]*StopPoint, 0, batchSize)
			return emitErr
		}
		processed += len(batch)
		batch = make([]*StopPoint, 0, batchSize)
		return nil
	}

	for {
		token, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		} else if tokenErr != nil {
			return processed, errored, tokenErr
		}

		startElement, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch startElement.Name.Local {
		case "NaPTAN":
			var document NaPTAN
			for _, attr := range startElement.Attr {
				switch attr.Name.Local {
				case "CreationDateTime":
					document.CreationDateTime = attr.Value
				case "ModificationDateTime":
					document.ModificationDateTime = attr.Value
				case "SchemaVersion":
					document.SchemaVersion = attr.Value
				}
			}
			log.Info().Str("schema_version", document.SchemaVersion).Str("modified", document.ModificationDateTime).Msg("Parsing NaPTAN document")
		case "StopPoint":
			var stopPoint StopPoint
			if decodeErr := decoder.DecodeElement(&stopPoint, &startElement); decodeErr != nil {
				log.Error().Err(decodeErr).Msg("Failed to decode StopPoint")
				errored++
				continue
			}

			if !stopPoint.Active() {
				continue
			}

			if stopPoint.Location != nil {
				stopPoint.Location.UpdateCoordinates()
			}

			batch = append(batch, &stopPoint)
			if len(batch) == batchSize {
				if flushErr := flush(); flushErr != nil {
					log.Error().Err(flushErr).Msg("Failed to emit StopPoint batch")
				}
			}
		}
	}

	if flushErr := flush(); flushErr != nil {
		log.Error().Err(flushErr).Msg("Failed to emit final StopPoint batch")
	}

	return processed, errored, nil
}
