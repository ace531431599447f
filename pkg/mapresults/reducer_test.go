package mapresults

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/supersession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestJSON = `{
	"DestinationBucket": "results",
	"MapRunArn": "arn:states:map-run/abc",
	"ResultFiles": {
		"SUCCEEDED": [{"Key": "s0", "Size": 1}],
		"FAILED": [{"Key": "f0", "Size": 1}],
		"PENDING": []
	}
}`

const succeededRecords = `[
	{
		"ExecutionArn": "arn:1",
		"Input": "{\"Bucket\": \"b\", \"Key\": \"ext/ds/req/a.xml\", \"DatasetRevisionId\": 7, \"DatasetEtlTaskResultId\": 10}",
		"Name": "exec-a",
		"Status": "SUCCEEDED",
		"StartDate": "2023-06-01T10:00:00Z",
		"StopDate": "2023-06-01T10:00:05Z"
	},
	{
		"ExecutionArn": "arn:2",
		"Input": "{\"mapS3Bucket\": \"b\", \"mapS3Object\": \"ext/ds/req/b.xml\", \"mapDatasetRevisionId\": 7, \"mapDatasetEtlTaskResultId\": 10}",
		"Name": "exec-b",
		"Status": "SUCCEEDED"
	}
]`

const failedRecords = `[
	{
		"ExecutionArn": "arn:3",
		"Input": "not valid json",
		"Name": "exec-c",
		"Status": "FAILED"
	}
]`

func fakeFetcher(t *testing.T) func(ctx context.Context, bucket string, key string) ([]byte, error) {
	return func(ctx context.Context, bucket string, key string) ([]byte, error) {
		switch key {
		case "out/run1/manifest.json":
			return []byte(manifestJSON), nil
		case "s0":
			return []byte(succeededRecords), nil
		case "f0":
			return []byte(failedRecords), nil
		}
		return nil, fmt.Errorf("unexpected key %s", key)
	}
}

func TestReduce(t *testing.T) {
	reducer := &Reducer{Fetch: fakeFetcher(t)}

	results, err := reducer.Reduce(context.Background(), "b", "out", "run1")
	require.NoError(t, err)

	require.Len(t, results.Succeeded, 2)
	require.Len(t, results.Failed, 1)

	// Plain spelling
	first := results.Succeeded[0]
	require.NotNil(t, first.ParsedInput)
	assert.Equal(t, "ext/ds/req/a.xml", first.ParsedInput.Key)
	assert.Equal(t, 7, first.ParsedInput.DatasetRevisionID)

	// map-prefixed spelling
	second := results.Succeeded[1]
	require.NotNil(t, second.ParsedInput)
	assert.Equal(t, "ext/ds/req/b.xml", second.ParsedInput.Key)
	assert.Equal(t, 7, second.ParsedInput.DatasetRevisionID)

	// Malformed inner input leaves ParsedInput nil but keeps the record
	assert.Nil(t, results.Failed[0].ParsedInput)
	assert.Equal(t, "exec-c", results.Failed[0].Name)
}

func TestReduceMissingManifestIsFatal(t *testing.T) {
	reducer := &Reducer{Fetch: func(ctx context.Context, bucket string, key string) ([]byte, error) {
		return nil, fmt.Errorf("no such key")
	}}

	_, err := reducer.Reduce(context.Background(), "b", "out", "run1")
	require.Error(t, err)
}

func TestReduceCountsMatchManifest(t *testing.T) {
	reducer := &Reducer{Fetch: fakeFetcher(t)}

	results, err := reducer.Reduce(context.Background(), "b", "out", "run1")
	require.NoError(t, err)

	// |succeeded| + |failed| equals the record counts across result files
	assert.Equal(t, 3, len(results.Succeeded)+len(results.Failed))
}

func TestAssembleNextMapInputs(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	selections := []supersession.Selection{
		{Attributes: catalogue.TXCFileAttributes{ID: 11, Filename: "a.xml", ServiceCode: "SC001", OperatingPeriodStartDate: &start}},
		{Attributes: catalogue.TXCFileAttributes{ID: 12, Filename: "b.xml", ServiceCode: "SC001"}, Superseded: true},
		{Attributes: catalogue.TXCFileAttributes{ID: 13, Filename: "missing.xml", ServiceCode: "SC001"}},
	}

	succeeded := []ExecutionRecord{
		{Name: "exec-a", Status: ExecutionSucceeded, ParsedInput: &ExecutionInput{Bucket: "b", Key: "ext/ds/req/a.xml", DatasetRevisionID: 7}},
		{Name: "exec-b", Status: ExecutionSucceeded, ParsedInput: &ExecutionInput{Bucket: "b", Key: "ext/ds/req/b.xml", DatasetRevisionID: 7}},
	}

	inputs := AssembleNextMapInputs(selections, succeeded)

	require.Len(t, inputs, 2)
	assert.Equal(t, "ext/ds/req/a.xml", inputs[0].ObjectKey)
	assert.Equal(t, int64(11), inputs[0].TXCFileAttributesID)
	assert.False(t, inputs[0].SupersededTimetable)
	assert.True(t, inputs[1].SupersededTimetable)
}
