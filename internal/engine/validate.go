package engine

import (
	"fmt"
	"strings"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateWorkflowShape checks the workflow on its own, without looking at registered actions.
func ValidateWorkflowShape(wf *domain.Workflow) error {
	if err := validate.Struct(wf); err != nil {
		return errors.WithMessage(ErrConfiguration, describe(err))
	}
	if wf.IsModelEvent() {
		switch wf.ModelEvent {
		case domain.ModelEventCreated, domain.ModelEventUpdated, domain.ModelEventDeleted:
		default:
			return errors.WithMessagef(ErrConfiguration, "unknown model event %q", wf.ModelEvent)
		}
	}
	return nil
}

// ValidateWorkflow is the authoring time check: shape plus every configured action being
// registered and usable with the workflow's trigger kind.
func ValidateWorkflow(wf *domain.Workflow, actions *ActionRegistry) error {
	if err := ValidateWorkflowShape(wf); err != nil {
		return err
	}
	for _, spec := range wf.Actions {
		ok, err := actions.Supports(spec.ActionID, wf.TriggerKind)
		if err != nil {
			return errors.WithMessagef(ErrConfiguration, "action #%d: %v", spec.Position, err)
		}
		if !ok {
			return errors.WithMessagef(ErrConfiguration, "action %s cannot be used with %s workflows", spec.ActionID, wf.TriggerKind)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
