package stages

import (
	"bytes"
	"context"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/intake"
	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/txc"
)

// FileAttributes parses one timetable file and records the attribute row
// the supersession selector works on.
func (h *Handlers) FileAttributes(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	body, err := objectstore.GetBytes(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return nil, err
	}

	doc, err := txc.ParseXML(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if _, err := doc.BuildIndex(); err != nil {
		return nil, err
	}

	hash, err := intake.Hash(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	attributes := doc.ExtractFileAttributes(event.Filename(), hash)

	row := catalogue.TXCFileAttributes{
		RevisionID:           event.DatasetRevisionID,
		Filename:             attributes.Filename,
		ServiceCode:          attributes.ServiceCode,
		RevisionNumber:       attributes.RevisionNumber,
		NationalOperatorCode: attributes.NationalOperatorCode,
		LicenceNumber:        attributes.LicenceNumber,
		LineNames:            attributes.LineNames,
		Origin:               attributes.Origin,
		Destination:          attributes.Destination,

		OperatingPeriodStartDate: attributes.OperatingPeriodStartDate,
		OperatingPeriodEndDate:   attributes.OperatingPeriodEndDate,

		ModificationDateTime: attributes.ModificationDateTime,
		PublicUse:            attributes.PublicUse,
		ServiceMode:          attributes.ServiceMode,
		Hash:                 attributes.Hash,
	}

	id, err := h.Repository.InsertFileAttributes(&row)
	if err != nil {
		return nil, err
	}

	return pipeline.OKResult(map[string]any{
		"txcFileAttributesId": id,
		"serviceCode":         attributes.ServiceCode,
		"revisionNumber":      attributes.RevisionNumber,
	}), nil
}
