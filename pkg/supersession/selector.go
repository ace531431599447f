// Package supersession decides which of the TXC files submitted for a
// revision carry the live timetable for their service code and which are
// superseded by a newer submission.
package supersession

import (
	"sort"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/rs/zerolog/log"
)

type Selection struct {
	Attributes catalogue.TXCFileAttributes
	Superseded bool
}

// Select applies the supersession rule per service code: at the highest
// revision number the file with the latest operating-period start date
// wins, and earlier revisions survive only while their start date is
// strictly before the winner's. Ties on start date go to the latest end
// date, then the highest id. A partition with no dated file at the top
// revision is left untouched.
func Select(files []catalogue.TXCFileAttributes) []Selection {
	files = DeduplicateFilenames(files)

	partitions := map[string][]catalogue.TXCFileAttributes{}
	var serviceCodes []string

	for _, file := range files {
		if _, exists := partitions[file.ServiceCode]; !exists {
			serviceCodes = append(serviceCodes, file.ServiceCode)
		}
		partitions[file.ServiceCode] = append(partitions[file.ServiceCode], file)
	}

	kept := map[int64]bool{}

	for _, serviceCode := range serviceCodes {
		partition := partitions[serviceCode]

		maxRevision := partition[0].RevisionNumber
		for _, file := range partition {
			if file.RevisionNumber > maxRevision {
				maxRevision = file.RevisionNumber
			}
		}

		winner := pickWinner(partition, maxRevision)
		if winner == nil {
			// Nothing dated at the top revision, keep the partition whole
			for _, file := range partition {
				kept[file.ID] = true
			}
			continue
		}

		kept[winner.ID] = true
		winningStart := *winner.OperatingPeriodStartDate

		for _, file := range partition {
			if file.ID == winner.ID {
				continue
			}

			if file.RevisionNumber < maxRevision &&
				file.OperatingPeriodStartDate != nil &&
				file.OperatingPeriodStartDate.Before(winningStart) {
				kept[file.ID] = true
			}
		}
	}

	selections := make([]Selection, 0, len(files))
	for _, file := range files {
		selections = append(selections, Selection{
			Attributes: file,
			Superseded: !kept[file.ID],
		})
	}

	return selections
}

func pickWinner(partition []catalogue.TXCFileAttributes, maxRevision int) *catalogue.TXCFileAttributes {
	var winner *catalogue.TXCFileAttributes

	for i, file := range partition {
		if file.RevisionNumber != maxRevision || file.OperatingPeriodStartDate == nil {
			continue
		}

		if winner == nil || laterThan(&partition[i], winner) {
			winner = &partition[i]
		}
	}

	return winner
}

func laterThan(candidate *catalogue.TXCFileAttributes, winner *catalogue.TXCFileAttributes) bool {
	if !candidate.OperatingPeriodStartDate.Equal(*winner.OperatingPeriodStartDate) {
		return candidate.OperatingPeriodStartDate.After(*winner.OperatingPeriodStartDate)
	}

	// Start-date tie: latest end date wins, open-ended counts lowest
	candidateEnd := candidate.OperatingPeriodEndDate
	winnerEnd := winner.OperatingPeriodEndDate
	if candidateEnd != nil && winnerEnd != nil && !candidateEnd.Equal(*winnerEnd) {
		return candidateEnd.After(*winnerEnd)
	}
	if (candidateEnd != nil) != (winnerEnd != nil) {
		return candidateEnd != nil
	}

	return candidate.ID > winner.ID
}

// DeduplicateFilenames collapses rows sharing a filename down to the one
// with the greatest id. Repeat pipeline runs against the same revision
// insert duplicates, so this keeps re-runs idempotent.
func DeduplicateFilenames(files []catalogue.TXCFileAttributes) []catalogue.TXCFileAttributes {
	byFilename := map[string]catalogue.TXCFileAttributes{}
	var order []string

	for _, file := range files {
		existing, exists := byFilename[file.Filename]
		if !exists {
			order = append(order, file.Filename)
			byFilename[file.Filename] = file
			continue
		}

		log.Info().
			Str("filename", file.Filename).
			Int64("kept", max64(existing.ID, file.ID)).
			Int64("dropped", min64(existing.ID, file.ID)).
			Msg("Duplicate file attributes row")

		if file.ID > existing.ID {
			byFilename[file.Filename] = file
		}
	}

	deduped := make([]catalogue.TXCFileAttributes, 0, len(order))
	for _, filename := range order {
		deduped = append(deduped, byFilename[filename])
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].ID < deduped[j].ID
	})

	return deduped
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
