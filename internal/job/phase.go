package job

import (
	"fmt"
	"time"
)

// PhaseName identifies one step of the conversion pipeline.
type PhaseName string

const (
	PhaseResolveID                 PhaseName = "resolve-id"
	PhaseFetchArchive              PhaseName = "fetch-archive"
	PhaseExtractArchive            PhaseName = "extract-archive"
	PhaseLocateSourceDocument      PhaseName = "locate-source-document"
	PhaseExtractMetadata           PhaseName = "extract-metadata"
	PhaseTransformToMarkup         PhaseName = "transform-to-markup"
	PhaseExtractDocumentText       PhaseName = "extract-document-text"
	PhaseUploadMedia               PhaseName = "upload-media"
	PhaseRewriteMediaReferences    PhaseName = "rewrite-media-references"
	PhaseRewriteSupplementaryLinks PhaseName = "rewrite-supplementary-links"
	PhasePublishDocument           PhaseName = "publish-document"
	PhasePublishRedirect           PhaseName = "publish-redirect"
)

// PhaseOrder is the canonical, fixed execution order.
var PhaseOrder = []PhaseName{
	PhaseResolveID,
	PhaseFetchArchive,
	PhaseExtractArchive,
	PhaseLocateSourceDocument,
	PhaseExtractMetadata,
	PhaseTransformToMarkup,
	PhaseExtractDocumentText,
	PhaseUploadMedia,
	PhaseRewriteMediaReferences,
	PhaseRewriteSupplementaryLinks,
	PhasePublishDocument,
	PhasePublishRedirect,
}

// PhaseIndex returns the position of name in PhaseOrder, or -1.
func PhaseIndex(name PhaseName) int {
	for i, candidate := range PhaseOrder {
		if candidate == name {
			return i
		}
	}
	return -1
}

// PhaseStatus is the tagged state of a single phase.
type PhaseStatus string

const (
	PhasePending PhaseStatus = "pending"
	PhaseDone    PhaseStatus = "done"
	PhaseFailed  PhaseStatus = "failed"
)

// PhaseState records the outcome of one phase. CompletedAt is set only when
// Status is done; Error and ErrorKind only when Status is failed.
type PhaseState struct {
	Name        PhaseName   `json:"name"`
	Status      PhaseStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorKind   string      `json:"error_kind,omitempty"`
}

// NewPhases returns the canonical phase list with every phase pending.
func NewPhases() []PhaseState {
	phases := make([]PhaseState, len(PhaseOrder))
	for i, name := range PhaseOrder {
		phases[i] = PhaseState{Name: name, Status: PhasePending}
	}
	return phases
}

// Phase returns the state for name.
func (r *Record) Phase(name PhaseName) (PhaseState, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseState{}, false
}

// IsDone reports whether name has completed.
func (r *Record) IsDone(name PhaseName) bool {
	p, ok := r.Phase(name)
	return ok && p.Status == PhaseDone
}

// CompletedCount returns the number of leading phases in done state.
func (r *Record) CompletedCount() int {
	count := 0
	for _, p := range r.Phases {
		if p.Status != PhaseDone {
			break
		}
		count++
	}
	return count
}

// FailedPhase returns the phase in failed state, if any.
func (r *Record) FailedPhase() (PhaseState, bool) {
	for _, p := range r.Phases {
		if p.Status == PhaseFailed {
			return p, true
		}
	}
	return PhaseState{}, false
}

// Complete reports whether every phase is done.
func (r *Record) Complete() bool {
	return len(r.Phases) == len(PhaseOrder) && r.CompletedCount() == len(PhaseOrder)
}

// MarkDone transitions name to done. The previous phase in canonical order must
// already be done. The timestamp is clamped so completion times never decrease.
func (r *Record) MarkDone(name PhaseName, at time.Time) error {
	idx, err := r.transitionIndex(name)
	if err != nil {
		return err
	}
	if idx > 0 {
		if prev := r.Phases[idx-1].CompletedAt; prev != nil && at.Before(*prev) {
			at = *prev
		}
	}
	stamp := at.UTC()
	r.Phases[idx] = PhaseState{Name: name, Status: PhaseDone, CompletedAt: &stamp}
	return nil
}

// MarkFailed transitions name to failed with the supplied message and kind.
func (r *Record) MarkFailed(name PhaseName, message, kind string) error {
	idx, err := r.transitionIndex(name)
	if err != nil {
		return err
	}
	r.Phases[idx] = PhaseState{Name: name, Status: PhaseFailed, Error: message, ErrorKind: kind}
	return nil
}

func (r *Record) transitionIndex(name PhaseName) (int, error) {
	idx := PhaseIndex(name)
	if idx < 0 {
		return -1, fmt.Errorf("unknown phase %q", name)
	}
	if len(r.Phases) != len(PhaseOrder) {
		r.Phases = NewPhases()
	}
	if idx > 0 && r.Phases[idx-1].Status != PhaseDone {
		return -1, fmt.Errorf("phase %s cannot start before %s is done", name, PhaseOrder[idx-1])
	}
	if r.Phases[idx].Status == PhaseDone {
		return -1, fmt.Errorf("phase %s already done", name)
	}
	return idx, nil
}

// CheckInvariants verifies the phase list is in canonical order and that no
// phase is done or failed after a phase that is not done.
func (r *Record) CheckInvariants() error {
	if len(r.Phases) != len(PhaseOrder) {
		return fmt.Errorf("record %s: expected %d phases, got %d", r.Identifier, len(PhaseOrder), len(r.Phases))
	}
	var (
		blocked bool
		last    time.Time
	)
	for i, p := range r.Phases {
		if p.Name != PhaseOrder[i] {
			return fmt.Errorf("record %s: phase %d is %q, expected %q", r.Identifier, i, p.Name, PhaseOrder[i])
		}
		if blocked && p.Status != PhasePending {
			return fmt.Errorf("record %s: phase %s is %s after an incomplete phase", r.Identifier, p.Name, p.Status)
		}
		switch p.Status {
		case PhaseDone:
			if p.CompletedAt == nil {
				return fmt.Errorf("record %s: phase %s is done without a timestamp", r.Identifier, p.Name)
			}
			if p.CompletedAt.Before(last) {
				return fmt.Errorf("record %s: phase %s completed before its predecessor", r.Identifier, p.Name)
			}
			last = *p.CompletedAt
		case PhasePending, PhaseFailed:
			blocked = true
		default:
			return fmt.Errorf("record %s: phase %s has unknown status %q", r.Identifier, p.Name, p.Status)
		}
	}
	return nil
}
