package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/listview"
	"orphanadmin/internal/query"
)

// Intent types accepted by POST /v1/views/{id}/intents.
const (
	intentSetFilter   = "setFilter"
	intentSetSort     = "setSort"
	intentSetPage     = "setPage"
	intentSetPageSize = "setPageSize"
	intentClear       = "clear"
)

type intentRequest struct {
	Type  string `json:"type" validate:"required,oneof=setFilter setSort setPage setPageSize clear"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty" validate:"max=200"`
	Field string `json:"field,omitempty"`
	Page  int    `json:"page,omitempty"`
	Size  int    `json:"size,omitempty"`
}

type viewResponse struct {
	ID string `json:"id"`
	listview.Snapshot
	Actions map[string]application.RowActions `json:"actions"`
}

func (a *API) viewPayload(r *http.Request, v *listview.View) viewResponse {
	snap := v.Snapshot()
	return viewResponse{
		ID:       v.ID,
		Snapshot: snap,
		Actions:  rowActions(snap.Page, auth.RolesFromContext(r.Context())),
	}
}

func owner(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// openView creates a view with the default query and loads its first page.
func (a *API) openView(w http.ResponseWriter, r *http.Request) {
	v, err := a.views.Open(r.Context(), owner(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := v.Refresh(r.Context()); err != nil && !errors.Is(err, listview.ErrSuperseded) {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.viewPayload(r, v))
}

func (a *API) getView(w http.ResponseWriter, r *http.Request) {
	v, err := a.views.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewPayload(r, v))
}

// reducerFor turns a wire intent into a query reducer. Unknown filter keys and
// sort fields are rejected here, before they reach the reducer.
func reducerFor(in intentRequest) (func(query.State) query.State, error) {
	switch in.Type {
	case intentSetFilter:
		key, err := query.ParseFilterKey(in.Key)
		if err != nil {
			return nil, err
		}
		return func(s query.State) query.State { return query.SetFilter(s, key, in.Value) }, nil
	case intentSetSort:
		field, err := query.ParseSortField(in.Field)
		if err != nil {
			return nil, err
		}
		return func(s query.State) query.State { return query.SetSort(s, field) }, nil
	case intentSetPage:
		return func(s query.State) query.State { return query.SetPage(s, in.Page) }, nil
	case intentSetPageSize:
		if in.Size <= 0 {
			return nil, fmt.Errorf("%w: size must be positive", application.ErrValidation)
		}
		return func(s query.State) query.State { return query.SetPageSize(s, in.Size) }, nil
	case intentClear:
		return query.Clear, nil
	}
	return nil, fmt.Errorf("%w: unknown intent %q", application.ErrValidation, in.Type)
}

// applyIntent runs one reducer against the view and fetches the result. The
// reduced state is validated against the same snapshot it was derived from.
// A superseded fetch still answers with the current snapshot.
func (a *API) applyIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := a.views.Get(ctx, owner(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	in, err := bindJSON[intentRequest](r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	reduce, err := reducerFor(in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	next := func(s query.State) (query.State, error) {
		return application.ValidateQuery(reduce(s))
	}
	if _, err := v.Update(ctx, next); err != nil && !errors.Is(err, listview.ErrSuperseded) {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewPayload(r, v))
}

func (a *API) refreshView(w http.ResponseWriter, r *http.Request) {
	v, err := a.views.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := v.Refresh(r.Context()); err != nil && !errors.Is(err, listview.ErrSuperseded) {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.viewPayload(r, v))
}

func (a *API) closeView(w http.ResponseWriter, r *http.Request) {
	if err := a.views.Close(r.Context(), owner(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
