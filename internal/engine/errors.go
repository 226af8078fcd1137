package engine

import (
	"github.com/RealZimboGuy/gophertrigger/internal/conditions"
	"github.com/RealZimboGuy/gophertrigger/internal/templating"
	"github.com/pkg/errors"
)

var (
	ErrConfiguration         = errors.New("invalid workflow configuration")
	ErrTemplateResolution    = templating.ErrResolution
	ErrTypeMismatch          = conditions.ErrTypeMismatch
	ErrActionExecution       = errors.New("action execution failed")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrActionNotFound        = errors.New("action not registered")
	ErrCapabilityMissing     = errors.New("required capability not enabled")
	ErrEntityTypeNotFound    = errors.New("entity type not registered")
	ErrWorkflowNotFound      = errors.New("workflow not found")
	ErrInvalidTrigger        = errors.New("invalid trigger")
)
