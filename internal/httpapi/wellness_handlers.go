package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"gocredo.org/internal/auth"
	"gocredo.org/internal/wellness"
)

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())
	dashboard, err := a.wellness.Dashboard(r.Context(), accountID)
	if err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (a *API) handleDailyLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var in wellness.LogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())
	log, met, err := a.wellness.SubmitDailyLog(r.Context(), accountID, in)
	if err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"log":       log,
		"targetMet": met,
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())
	account, err := a.auth.Account(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	goals, err := a.wellness.Goals(r.Context(), accountID)
	if err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":             account.ID,
		"name":           account.Name,
		"email":          account.Email,
		"role":           account.Role,
		"goals":          goals,
		"accountWarning": account.AccountWarning,
	})
}

func (a *API) handleProviderPatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	overview, err := a.wellness.ProviderOverview(r.Context())
	if err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	if overview == nil {
		overview = []wellness.PatientCompliance{}
	}
	writeJSON(w, http.StatusOK, overview)
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())
	notifications, err := a.wellness.UnreadNotifications(r.Context(), accountID)
	if err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []wellness.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (a *API) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "read" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())
	if err := a.wellness.MarkNotificationRead(r.Context(), accountID, parts[0]); err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleTips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tips, err := a.wellness.ActiveTips(r.Context())
	if err != nil {
		a.handleWellnessError(w, r, err)
		return
	}
	if tips == nil {
		tips = []wellness.HealthTip{}
	}
	writeJSON(w, http.StatusOK, tips)
}

func (a *API) handleWellnessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wellness.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, wellness.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
