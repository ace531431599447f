package pipeline

import (
	"encoding/json"
	"path"
	"strconv"
)

const UnknownFilename = "UNKNOWN"

// Event is the JSON object every stage receives from the workflow engine.
// Producers are inconsistent about key spelling (plain vs map-prefixed,
// upper vs lower first letter) so decoding accepts every alias and the
// struct holds the normalised value.
type Event struct {
	Bucket                 string
	ObjectKey              string
	DatasetRevisionID      int
	DatasetETLTaskResultID int
	URLLink                string
	MapRunArn              string
	OutputPrefix           string
	DatasetType            string
	SkipVirusScan          bool
	SupersededTimetable    bool
	TXCFileAttributesID    int64
}

var eventAliases = map[string][]string{
	"Bucket":                 {"Bucket", "mapS3Bucket"},
	"ObjectKey":              {"ObjectKey", "mapS3Object"},
	"DatasetRevisionId":      {"DatasetRevisionId", "datasetRevisionId", "mapDatasetRevisionId"},
	"DatasetEtlTaskResultId": {"DatasetEtlTaskResultId", "mapDatasetEtlTaskResultId"},
	"URLLink":                {"URLLink", "url"},
	"OutputPrefix":           {"OutputPrefix", "MapRunPrefix"},
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Bucket = aliasString(raw, "Bucket")
	e.ObjectKey = aliasString(raw, "ObjectKey")
	e.DatasetRevisionID = aliasInt(raw, "DatasetRevisionId")
	e.DatasetETLTaskResultID = aliasInt(raw, "DatasetEtlTaskResultId")
	e.URLLink = aliasString(raw, "URLLink")
	e.OutputPrefix = aliasString(raw, "OutputPrefix")

	if value, exists := raw["MapRunArn"]; exists {
		json.Unmarshal(value, &e.MapRunArn)
	}
	if value, exists := raw["DatasetType"]; exists {
		json.Unmarshal(value, &e.DatasetType)
	}
	if value, exists := raw["SkipVirusScan"]; exists {
		json.Unmarshal(value, &e.SkipVirusScan)
	}
	if value, exists := raw["SupersededTimetable"]; exists {
		json.Unmarshal(value, &e.SupersededTimetable)
	}
	if value, exists := raw["TxcFileAttributesId"]; exists {
		json.Unmarshal(value, &e.TXCFileAttributesID)
	}

	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	// Always emit the plain spelling
	return json.Marshal(map[string]any{
		"Bucket":                 e.Bucket,
		"ObjectKey":              e.ObjectKey,
		"DatasetRevisionId":      e.DatasetRevisionID,
		"DatasetEtlTaskResultId": e.DatasetETLTaskResultID,
		"URLLink":                e.URLLink,
		"MapRunArn":              e.MapRunArn,
		"OutputPrefix":           e.OutputPrefix,
		"DatasetType":            e.DatasetType,
		"SkipVirusScan":          e.SkipVirusScan,
		"SupersededTimetable":    e.SupersededTimetable,
		"TxcFileAttributesId":    e.TXCFileAttributesID,
	})
}

// Filename is the tail of the object key, used on TaskResult rows.
func (e *Event) Filename() string {
	if e.ObjectKey == "" {
		return UnknownFilename
	}

	return path.Base(e.ObjectKey)
}

func aliasString(raw map[string]json.RawMessage, key string) string {
	for _, alias := range eventAliases[key] {
		if value, exists := raw[alias]; exists {
			var s string
			if err := json.Unmarshal(value, &s); err == nil && s != "" {
				return s
			}
		}
	}

	return ""
}

func aliasInt(raw map[string]json.RawMessage, key string) int {
	for _, alias := range eventAliases[key] {
		if value, exists := raw[alias]; exists {
			var n int
			if err := json.Unmarshal(value, &n); err == nil {
				return n
			}

			// Some producers quote their integers
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				if n, err := strconv.Atoi(s); err == nil {
					return n
				}
			}
		}
	}

	return 0
}
