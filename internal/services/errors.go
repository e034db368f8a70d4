package services

import (
	"errors"
	"strings"
)

var (
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrTransient        = errors.New("transient failure")
	ErrStructural       = errors.New("structural error")
	ErrLicensing        = errors.New("licensing error")
	ErrPublishConflict  = errors.New("publish conflict")
	ErrDonorDataMissing = errors.New("donor data missing")
)

// Kind names used when persisting or logging a classified failure.
const (
	KindExternalTool     = "external_tool"
	KindValidation       = "validation"
	KindConfiguration    = "configuration"
	KindNotFound         = "not_found"
	KindTransient        = "transient"
	KindStructural       = "structural"
	KindLicensing        = "licensing"
	KindPublishConflict  = "publish_conflict"
	KindDonorDataMissing = "donor_data_missing"
	KindUnknown          = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrDonorDataMissing, KindDonorDataMissing},
	{ErrPublishConflict, KindPublishConflict},
	{ErrLicensing, KindLicensing},
	{ErrStructural, KindStructural},
	{ErrNotFound, KindNotFound},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrTransient, KindTransient},
	{ErrExternalTool, KindExternalTool},
}

// Error is a classified failure carrying phase context. It unwraps to both its
// marker and its cause so errors.Is works against either.
type Error struct {
	Marker    error
	Phase     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Marker != nil {
		b.WriteString(e.Marker.Error())
		b.WriteString(": ")
	}
	b.WriteString(buildDetail(e.Phase, e.Operation, e.Message))
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error that includes phase context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Phase:     strings.TrimSpace(phase),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithHint attaches a diagnostic reference (for example a lookup URL) to err.
// Errors that are not *Error are wrapped with an unknown classification.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		clone := *svcErr
		clone.Hint = strings.TrimSpace(hint)
		return &clone
	}
	return &Error{Message: "failure", Hint: strings.TrimSpace(hint), Cause: err}
}

// InPhase records phase on err when no phase is set yet. The classification of
// err is preserved.
func InPhase(err error, phase string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		if svcErr.Phase != "" {
			return err
		}
		clone := *svcErr
		clone.Phase = strings.TrimSpace(phase)
		return &clone
	}
	return &Error{Phase: strings.TrimSpace(phase), Operation: "execute", Cause: err}
}

// ErrorDetails is the flattened view of a classified failure.
type ErrorDetails struct {
	Kind      string
	Phase     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details classifies err and extracts any phase context recorded by Wrap.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: Kind(err), Message: err.Error(), Cause: err}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Phase = svcErr.Phase
		details.Operation = svcErr.Operation
		if svcErr.Message != "" {
			details.Message = svcErr.Message
		}
		details.Hint = svcErr.Hint
		if svcErr.Cause != nil {
			details.Cause = svcErr.Cause
		}
	}
	return details
}

// Kind returns the classification name for err, or KindUnknown.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return KindUnknown
}

// IsRecoverable reports whether err signals a condition the caller is expected
// to absorb locally rather than fail on.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrPublishConflict)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
