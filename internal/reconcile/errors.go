package reconcile

import (
	"errors"
	"fmt"
)

// ErrMissingAssetID reports a create call that succeeded without returning a
// remote asset id.
var ErrMissingAssetID = errors.New("asset creation succeeded but no id was returned")

// TemplateMismatchError is the business-rule guard: the tag already exists
// remotely under a template the reconciler is not allowed to touch.
type TemplateMismatchError struct {
	Tag      string
	Template string
}

func (e *TemplateMismatchError) Error() string {
	template := e.Template
	if template == "" {
		template = "unknown"
	}
	return fmt.Sprintf("asset %q already exists but has an invalid template: %s", e.Tag, template)
}

// AmbiguousMatchError reports more than one remote asset carrying the same
// tag. The reconciler fails closed rather than picking one arbitrarily.
type AmbiguousMatchError struct {
	Tag   string
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("found %d remote assets named %q, refusing to pick one", e.Count, e.Tag)
}
