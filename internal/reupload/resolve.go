package reupload

import (
	"fmt"

	"recitation/internal/job"
	"recitation/internal/services"
)

// Action is the resolver verdict for a queued request.
type Action string

const (
	ActionRun  Action = "run"
	ActionSkip Action = "skip"
)

// Decision tells the worker what to do with a claimed request.
type Decision struct {
	Action     Action
	Regenerate job.Selector
	Donor      *job.Record
}

// Resolve maps the prior record and the requested selector to a decision.
//
// With no prior record everything regenerates. With a prior record and no
// (or an empty) selector the request is a no-op. Otherwise the selected
// categories regenerate and the prior record donates the others, which it
// must therefore hold.
func Resolve(prior *job.Record, requested *job.Selector) (Decision, error) {
	if prior == nil {
		return Decision{Action: ActionRun, Regenerate: job.AllCategories()}, nil
	}
	if requested == nil || requested.IsEmpty() {
		return Decision{Action: ActionSkip}, nil
	}
	regenerate := requested.Normalized()
	regenerate.Text = true
	if err := checkDonor(prior, regenerate); err != nil {
		return Decision{}, err
	}
	return Decision{Action: ActionRun, Regenerate: regenerate, Donor: prior}, nil
}

// Merge returns a copy of current in which every category not regenerated is
// a deep copy of the donor bundle. current and donor are not modified.
func Merge(current, donor *job.Record, regenerate job.Selector) (*job.Record, error) {
	if current == nil {
		return nil, services.Wrap(services.ErrValidation, string(job.PhaseUploadMedia), "merge assets", "current record is nil", nil)
	}
	out := current.Clone()
	if out.Assets == nil {
		out.Assets = map[job.Category]job.AssetBundle{}
	}
	excluded := regenerate.Excluded()
	if len(excluded) == 0 {
		return out, nil
	}
	if err := checkDonor(donor, regenerate); err != nil {
		return nil, err
	}
	for _, c := range excluded {
		out.Assets[c] = donor.Assets[c].Clone()
	}
	return out, nil
}

func checkDonor(donor *job.Record, regenerate job.Selector) error {
	for _, c := range regenerate.Excluded() {
		if donor == nil {
			return services.Wrap(services.ErrDonorDataMissing, string(job.PhaseUploadMedia), "splice assets",
				fmt.Sprintf("category %s is not regenerated and no prior record exists", c), nil)
		}
		if _, ok := donor.Assets[c]; !ok {
			return services.Wrap(services.ErrDonorDataMissing, string(job.PhaseUploadMedia), "splice assets",
				fmt.Sprintf("prior record for %s has no %s bundle to reuse", donor.Identifier, c), nil)
		}
	}
	return nil
}
