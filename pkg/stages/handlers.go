// Package stages wires the pipeline components into workflow-engine
// stages. Every stage is a function of event to result; stages talk to
// each other only through event JSON and object-store keys.
package stages

import (
	"github.com/bodspipeline/bodspipeline/pkg/aggregation"
	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/intake"
	"github.com/bodspipeline/bodspipeline/pkg/mapresults"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/pti"
	"github.com/bodspipeline/bodspipeline/pkg/xmlvalidate"
)

type Handlers struct {
	Repository *catalogue.Repository
	Downloader *intake.Downloader
	Scanner    *intake.VirusScanner
	Schemas    *xmlvalidate.SchemaSet
	Engine     *pti.Engine
	Metadata   *aggregation.Store
	Aggregator *aggregation.Aggregator
	Reducer    *mapresults.Reducer
}

func NewHandlers() (*Handlers, error) {
	repository, err := catalogue.NewRepository()
	if err != nil {
		return nil, err
	}

	ruleSet, err := pti.DefaultRuleSet()
	if err != nil {
		return nil, err
	}

	engine, err := pti.NewEngine(ruleSet, pti.NewScottishRegionChecker())
	if err != nil {
		return nil, err
	}

	metadata := aggregation.NewStore()

	return &Handlers{
		Repository: repository,
		Downloader: intake.NewDownloader(),
		Scanner:    intake.NewVirusScanner(),
		Schemas:    xmlvalidate.NewSchemaSet(),
		Engine:     engine,
		Metadata:   metadata,
		Aggregator: &aggregation.Aggregator{Store: metadata, Repository: repository},
		Reducer:    mapresults.NewReducer(),
	}, nil
}

// All returns every stage wrapped with task-result recording, keyed the
// way the workflow engine names them.
func (h *Handlers) All() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: "download_dataset", Handler: h.DownloadDataset},
		{Name: "extract_files", Handler: h.ExtractFiles},
		{Name: "schema_check", Handler: h.SchemaCheck},
		{Name: "pti_check", Handler: h.PTICheck},
		{Name: "file_attributes", Handler: h.FileAttributes},
		{Name: "fares_metadata", Handler: h.FaresMetadata},
		{Name: "select_files", Handler: h.SelectFiles},
		{Name: "reduce_map_results", Handler: h.ReduceMapResults},
		{Name: "aggregate_fares", Handler: h.AggregateFares},
		{Name: "finalise_revision", Handler: h.FinaliseRevision},
	}
}

// Wrapped returns the recording StageFunc for a named stage, or nil when
// the name is unknown.
func (h *Handlers) Wrapped(name string) pipeline.StageFunc {
	for _, stage := range h.All() {
		if stage.Name == name {
			return pipeline.Wrap(stage)
		}
	}
	return nil
}
