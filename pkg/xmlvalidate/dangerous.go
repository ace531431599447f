// Package xmlvalidate guards the pipeline's XML intake: a dangerous-XML
// pass first, schema conformance second.
package xmlvalidate

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
)

// entityBudget caps the number of entity references a document may carry.
// Anything above it is an expansion attack, not a timetable.
const entityBudget = 1000

// DangerousScan rejects documents that try DOCTYPE declarations, external
// entity tricks or entity-expansion floods before the real parser ever
// sees them. encoding/xml never fetches external entities, so the scan
// only needs to spot the constructs.
func DangerousScan(body []byte) error {
	entityReferences := 0
	for _, b := range body {
		if b == '&' {
			entityReferences++
		}
	}
	if entityReferences > entityBudget {
		return pipeline.NewValidationError(pipeline.ErrorDangerousXML, "document carries %d entity references", entityReferences)
	}

	d := xml.NewDecoder(bytes.NewReader(body))

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "decoding token: %s", err)
		} else if tok == nil {
			break
		}

		if directive, isDirective := tok.(xml.Directive); isDirective {
			if bytes.HasPrefix(bytes.TrimSpace(directive), []byte("DOCTYPE")) {
				return pipeline.NewValidationError(pipeline.ErrorDangerousXML, "document declares a DOCTYPE")
			}
			return pipeline.NewValidationError(pipeline.ErrorDangerousXML, "document carries an XML directive")
		}
	}

	return nil
}
