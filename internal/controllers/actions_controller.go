package controllers

import (
	"net/http"

	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/util"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/models"
)

// ActionsController serves the catalog authoring tools build workflows from: registered
// actions, entity types and magic attribute suggestions.
type ActionsController struct {
	AuthController
	Actions  *engine.ActionRegistry
	Entities *engine.EntityRegistry
}

func NewActionsController(actions *engine.ActionRegistry, entities *engine.EntityRegistry,
	apiClientRepo engine.ApiClientRepo) *ActionsController {
	return &ActionsController{Actions: actions, Entities: entities, AuthController: AuthController{ApiClientRepo: apiClientRepo}}
}

func (c *ActionsController) handleGetActions(w http.ResponseWriter, r *http.Request) {
	all := c.Actions.All()
	out := make([]models.ActionDescriptor, 0, len(all))
	for _, a := range all {
		out = append(out, describeAction(a))
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}

func describeAction(a core.Action) models.ActionDescriptor {
	fields := a.Fields()
	if fields == nil {
		fields = []core.Field{}
	}
	return models.ActionDescriptor{
		ID:                    a.ID(),
		Name:                  a.Name(),
		Fields:                fields,
		MagicAttributeFields:  a.MagicAttributeFields(),
		UsableWithScheduled:   a.UsableWithScheduled(),
		UsableWithModelEvent:  a.UsableWithModelEvent(),
		UsableWithCustomEvent: a.UsableWithCustomEvent(),
		RequiredPackages:      a.RequiredPackages(),
	}
}

func (c *ActionsController) handleGetEntityTypes(w http.ResponseWriter, r *http.Request) {
	all := c.Entities.All()
	if all == nil {
		all = []core.EntityType{}
	}
	util.WriteJSONResponse(w, http.StatusOK, all)
}

func (c *ActionsController) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	et, err := c.Entities.Get(r.PathValue("entityType"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.SuggestionsResponse{EntityType: et.Name, Attributes: et.Suggestions()})
}

// handleGetEventSuggestions maps ?variables=a,b to their @event->x@ tokens.
func (c *ActionsController) handleGetEventSuggestions(w http.ResponseWriter, r *http.Request) {
	var variables []string
	for _, v := range r.URL.Query()["variables"] {
		variables = append(variables, splitList(v)...)
	}
	util.WriteJSONResponse(w, http.StatusOK, models.SuggestionsResponse{EventTokens: core.CustomEventSuggestions(variables)})
}
