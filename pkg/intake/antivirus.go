package intake

import (
	"os"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/util"
	clamd "github.com/dutchcoders/go-clamd"
	"github.com/rs/zerolog/log"
)

const defaultClamAddress = "tcp://localhost:3310"

type VirusScanner struct {
	clam *clamd.Clamd
}

func NewVirusScanner() *VirusScanner {
	address := defaultClamAddress

	env := util.GetEnvironmentVariables()
	if env["BODSPIPE_CLAMAV_ADDRESS"] != "" {
		address = env["BODSPIPE_CLAMAV_ADDRESS"]
	}

	return &VirusScanner{clam: clamd.NewClamd(address)}
}

// ScanFile INSTREAMs the file to the ClamAV daemon. FOUND rejects the
// revision with the virus name; daemon trouble and connection trouble map
// to their own kinds so the workflow engine can retry the right ones.
func (s *VirusScanner) ScanFile(path string) error {
	if err := s.clam.Ping(); err != nil {
		return pipeline.NewInfrastructureError(pipeline.ErrorAVConnection, err, "connecting to antivirus daemon")
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	abort := make(chan bool)
	defer close(abort)

	responses, err := s.clam.ScanStream(file, abort)
	if err != nil {
		return pipeline.NewInfrastructureError(pipeline.ErrorAVConnection, err, "streaming to antivirus daemon")
	}

	response, ok := <-responses
	if !ok || response == nil {
		return pipeline.NewInfrastructureError(pipeline.ErrorAVFailure, nil, "no response from antivirus daemon")
	}

	switch response.Status {
	case clamd.RES_OK:
		log.Debug().Str("path", path).Msg("Antivirus scan clean")
		return nil
	case clamd.RES_FOUND:
		return pipeline.NewValidationError(pipeline.ErrorSuspiciousFile, "antivirus found %s", response.Description)
	default:
		return pipeline.NewInfrastructureError(pipeline.ErrorAVFailure, nil, "antivirus scan returned %s: %s", response.Status, response.Description)
	}
}
