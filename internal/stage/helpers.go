package stage

import (
	"fmt"

	"recitation/internal/job"
	"recitation/internal/services"
)

// RequireInput returns a structural error when a value an earlier phase should
// have produced is missing from the record.
func RequireInput(rec *job.Record, phase job.PhaseName, field, value string) error {
	if value != "" {
		return nil
	}
	identifier := ""
	if rec != nil {
		identifier = rec.Identifier
	}
	return services.Wrap(
		services.ErrStructural, string(phase), "check inputs",
		fmt.Sprintf("%s missing for %s; an earlier phase did not record it", field, identifier), nil)
}

// RequireMetadata returns the record metadata or a structural error.
func RequireMetadata(rec *job.Record, phase job.PhaseName) (*job.Metadata, error) {
	if rec == nil || rec.Metadata == nil {
		return nil, RequireInput(rec, phase, "metadata", "")
	}
	return rec.Metadata, nil
}
