package stages

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
)

// SchemaCheck validates one extracted file against its declared schema
// version. Violations are recorded on the result, not raised: the file
// stays in the pipeline and the report surfaces them.
func (h *Handlers) SchemaCheck(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	body, err := objectstore.GetBytes(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return nil, err
	}

	schemaName, err := declaredSchema(body)
	if err != nil {
		return nil, err
	}

	violations, err := h.Schemas.Validate(ctx, schemaName, body, event.DatasetRevisionID)
	if err != nil {
		return nil, err
	}

	violationList := make([]map[string]any, 0, len(violations))
	for _, violation := range violations {
		violationList = append(violationList, map[string]any{
			"line":    violation.Line,
			"message": violation.Message,
		})
	}

	return pipeline.OKResult(map[string]any{
		"schema":     schemaName,
		"violations": violationList,
		"count":      len(violations),
	}), nil
}

// declaredSchema maps the document's root element and version attribute
// to a schema bundle name.
func declaredSchema(body []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))

	for {
		token, err := decoder.Token()
		if err != nil {
			return "", pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "no root element: %s", err)
		}

		startElement, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch startElement.Name.Local {
		case "TransXChange":
			for _, attr := range startElement.Attr {
				if attr.Name.Local == "SchemaVersion" && attr.Value != "" {
					return fmt.Sprintf("TransXChange_%s", attr.Value), nil
				}
			}
		case "PublicationDelivery":
			for _, attr := range startElement.Attr {
				if attr.Name.Local == "version" && attr.Value != "" {
					return fmt.Sprintf("NeTEx_%s", attr.Value), nil
				}
			}
		default:
			return "", pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "unexpected root element %s", startElement.Name.Local)
		}

		return "", pipeline.NewValidationError(pipeline.ErrorSchemaVersionMissing, "%s declares no schema version", startElement.Name.Local)
	}
}
