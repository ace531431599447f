package pti

type Violation struct {
	ObservationNumber int    `json:"observationNumber"`
	Category          string `json:"category"`
	Details           string `json:"details"`
	Severity          string `json:"severity"`
	Line              int    `json:"line"`
	ElementName       string `json:"elementName"`
	ElementText       string `json:"elementText"`
	Filename          string `json:"filename"`
}
