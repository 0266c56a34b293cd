package http

import "net/http"

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	result, err := a.sessionSvc.Start(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      result.Token,
		"session_id": result.SessionID,
	})
}
