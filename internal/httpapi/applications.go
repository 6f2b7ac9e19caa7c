package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"orphanadmin/internal/application"
	"orphanadmin/internal/audit"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/export"
	"orphanadmin/internal/notify"
	"orphanadmin/internal/query"
	"orphanadmin/internal/statuschange"
)

type listResponse struct {
	application.Page
	Query   query.State                       `json:"query"`
	Actions map[string]application.RowActions `json:"actions"`
}

type detailResponse struct {
	application.Application
	Actions application.RowActions `json:"actions"`
}

type statusRequest struct {
	Status           string `json:"status" validate:"required"`
	RejectionMessage string `json:"rejectionMessage" validate:"max=1000"`
}

type statusResponse struct {
	Session     statuschange.Snapshot   `json:"session"`
	Application application.Application `json:"application"`
}

type transitionsResponse struct {
	Current application.Status   `json:"current"`
	Targets []application.Status `json:"targets"`
}

func rowActions(page application.Page, roles auth.Roles) map[string]application.RowActions {
	out := make(map[string]application.RowActions, len(page.Content))
	for _, s := range page.Content {
		out[s.ID] = application.RowActionsFor(s, roles)
	}
	return out
}

func (a *API) listApplications(w http.ResponseWriter, r *http.Request) {
	q, err := query.Decode(r.URL.Query())
	if err == nil {
		q, err = application.ValidateQuery(q)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := a.apps.ListApplications(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Page:    page,
		Query:   q,
		Actions: rowActions(page, auth.RolesFromContext(r.Context())),
	})
}

// bindDraft decodes a draft, normalizes it, then validates the result so
// that enum values are checked in their canonical case.
func bindDraft(r *http.Request) (application.Draft, error) {
	var d application.Draft
	if err := decodeJSON(r, &d); err != nil {
		return d, err
	}
	d = d.Normalize()
	if err := validateStruct(d); err != nil {
		return application.Draft{}, err
	}
	return d, nil
}

func (a *API) createApplication(w http.ResponseWriter, r *http.Request) {
	const action = "create application"
	ctx := r.Context()
	if !auth.RolesFromContext(ctx).HasAny(auth.RoleAdmin, auth.RoleAgent) {
		writeError(w, r, http.StatusForbidden, "only agents and admins may create applications")
		return
	}
	d, err := bindDraft(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	app, err := a.apps.CreateApplication(ctx, d)
	if err != nil {
		a.notifier.Notify(ctx, notify.Failure(action, "", err))
		writeServiceError(w, r, err)
		return
	}
	a.notifier.Notify(ctx, notify.Success(action, app.ID, "application created as "+string(app.Status)))
	_ = audit.LogEvent(ctx, audit.ApplicationCreated, map[string]any{
		"application_id": app.ID,
		"status":         string(app.Status),
	})
	a.refreshViews(ctx)
	writeJSON(w, http.StatusCreated, detailResponse{
		Application: app,
		Actions:     application.RowActionsFor(app.Summary(), auth.RolesFromContext(ctx)),
	})
}

func (a *API) getApplication(w http.ResponseWriter, r *http.Request) {
	app, err := a.apps.GetApplication(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{
		Application: app,
		Actions:     application.RowActionsFor(app.Summary(), auth.RolesFromContext(r.Context())),
	})
}

func (a *API) updateApplication(w http.ResponseWriter, r *http.Request) {
	const action = "update application"
	ctx := r.Context()
	id := r.PathValue("id")
	roles := auth.RolesFromContext(ctx)

	current, err := a.apps.GetApplication(ctx, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !application.CanEditApplication(current.Status, roles) {
		writeError(w, r, http.StatusForbidden, "cannot edit a "+string(current.Status)+" application")
		return
	}
	d, err := bindDraft(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	app, err := a.apps.UpdateApplication(ctx, id, d)
	if err != nil {
		a.notifier.Notify(ctx, notify.Failure(action, id, err))
		writeServiceError(w, r, err)
		return
	}
	a.notifier.Notify(ctx, notify.Success(action, id, "application saved as "+string(app.Status)))
	_ = audit.LogEvent(ctx, audit.ApplicationUpdated, map[string]any{
		"application_id": id,
		"from":           string(current.Status),
		"status":         string(app.Status),
	})
	a.refreshViews(ctx)
	writeJSON(w, http.StatusOK, detailResponse{
		Application: app,
		Actions:     application.RowActionsFor(app.Summary(), roles),
	})
}

func (a *API) deleteApplication(w http.ResponseWriter, r *http.Request) {
	const action = "delete application"
	ctx := r.Context()
	id := r.PathValue("id")

	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
		writeError(w, r, http.StatusBadRequest, "deletion must be confirmed with confirm=true")
		return
	}
	current, err := a.apps.GetApplication(ctx, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !application.CanDeleteApplication(current.Status, auth.RolesFromContext(ctx)) {
		writeError(w, r, http.StatusForbidden, "cannot delete this application")
		return
	}
	if err := a.apps.DeleteApplication(ctx, id); err != nil {
		a.notifier.Notify(ctx, notify.Failure(action, id, err))
		writeServiceError(w, r, err)
		return
	}
	a.notifier.Notify(ctx, notify.Success(action, id, "application deleted"))
	_ = audit.LogEvent(ctx, audit.ApplicationDeleted, map[string]any{
		"application_id": id,
		"status":         string(current.Status),
	})
	a.refreshViews(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listTransitions(w http.ResponseWriter, r *http.Request) {
	app, err := a.apps.GetApplication(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	targets := []application.Status{}
	if application.CanChangeStatus(app.Status, auth.RolesFromContext(r.Context())) {
		targets = application.AvailableTargets(app.Status)
	}
	writeJSON(w, http.StatusOK, transitionsResponse{Current: app.Status, Targets: targets})
}

// changeStatus drives one status change session from selection to submit.
func (a *API) changeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	roles := auth.RolesFromContext(ctx)

	req, err := bindJSON[statusRequest](r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	target, err := application.ParseStatus(req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	current, err := a.apps.GetApplication(ctx, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated := current
	session := statuschange.New(id, current.Status, roles, a.apps, a.notifier,
		statuschange.WithDetailRefresh(func(ctx context.Context) {
			if app, err := a.apps.GetApplication(ctx, id); err == nil {
				updated = app
			}
		}),
		statuschange.WithListRefresh(a.refreshViews),
	)
	if err := session.Select(target); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := session.SetMessage(req.RejectionMessage); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := session.Submit(ctx); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(ctx, audit.ApplicationStatusChanged, map[string]any{
		"application_id": id,
		"from":           string(current.Status),
		"to":             string(target),
	})
	writeJSON(w, http.StatusOK, statusResponse{Session: session.Snapshot(), Application: updated})
}

func (a *API) exportApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	doc, err := a.exporter.Export(ctx, id, format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(ctx, audit.ApplicationExported, map[string]any{
		"application_id": id,
		"format":         string(format),
		"bytes":          len(doc.Body),
	})
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// refreshViews reloads the caller's open list views after a mutation.
func (a *API) refreshViews(ctx context.Context) {
	if a.views == nil {
		return
	}
	if owner, ok := auth.UserIDFromContext(ctx); ok {
		a.views.RefreshOwner(ctx, owner)
	}
}
