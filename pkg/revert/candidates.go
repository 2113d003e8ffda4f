package revert

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/revertfang/pkg/editlog"
)

// Candidate selection modes. CandidatesAuto resolves to CandidatesFlagged when
// the log carries set revert flags and to CandidatesAll otherwise.
const (
	CandidatesAuto      = "auto"
	CandidatesFlagged   = "flagged"
	CandidatesRecurring = "recurring"
	CandidatesAll       = "all"
)

// ErrUnknownCandidateMode is returned by SelectCandidates for an unsupported mode.
var ErrUnknownCandidateMode = errors.New("unknown candidate mode")

// CandidateModes lists the supported selection modes.
func CandidateModes() []string {
	return []string{CandidatesAuto, CandidatesFlagged, CandidatesRecurring, CandidatesAll}
}

// ResolveCandidateMode turns CandidatesAuto into a concrete mode for records.
// Other modes are returned unchanged.
func ResolveCandidateMode(mode string, records []editlog.EditRecord) string {
	if mode != CandidatesAuto {
		return mode
	}

	if HasRevertFlags(records) {
		return CandidatesFlagged
	}

	return CandidatesAll
}

// HasRevertFlags reports whether any record has its revert flag set. Logs
// without the revert-flag column never do.
func HasRevertFlags(records []editlog.EditRecord) bool {
	for _, rec := range records {
		if rec.Revert {
			return true
		}
	}

	return false
}

// SelectCandidates picks potential reverts from time-sorted records.
func SelectCandidates(mode string, records []editlog.EditRecord) ([]editlog.EditRecord, error) {
	switch ResolveCandidateMode(mode, records) {
	case CandidatesFlagged:
		return FlaggedCandidates(records), nil
	case CandidatesRecurring:
		return RecurringCandidates(records), nil
	case CandidatesAll:
		return AllCandidates(records), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCandidateMode, mode)
	}
}

// FlaggedCandidates returns the records whose revert flag is set.
func FlaggedCandidates(records []editlog.EditRecord) []editlog.EditRecord {
	var out []editlog.EditRecord

	for _, rec := range records {
		if rec.Revert {
			out = append(out, rec)
		}
	}

	return out
}

// RecurringCandidates returns the records whose version number already
// appeared earlier in the sequence.
func RecurringCandidates(records []editlog.EditRecord) []editlog.EditRecord {
	seen := make(map[int]struct{})

	var out []editlog.EditRecord

	for _, rec := range records {
		if _, ok := seen[rec.Version]; ok {
			out = append(out, rec)

			continue
		}

		seen[rec.Version] = struct{}{}
	}

	return out
}

// AllCandidates returns every record.
func AllCandidates(records []editlog.EditRecord) []editlog.EditRecord {
	return append([]editlog.EditRecord(nil), records...)
}
