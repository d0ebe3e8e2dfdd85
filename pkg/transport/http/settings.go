package http

import (
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/config"
	"github.com/NikolayKlyatishev/vector-view/pkg/settings"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

func (a *Adapter) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.svc.Settings.Current().Settings())
}

type updateSettingsResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Settings config.Settings `json:"settings"`
}

// handleUpdateSettings publishes a validated copy of the configuration.
// Host and port changes apply on the next start.
func (a *Adapter) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch config.SettingsPatch
	if !a.decodeJSON(w, r, &patch) {
		return
	}
	next, err := a.svc.Settings.Update(patch)
	if err != nil {
		transport.WriteError(w, api.NewInvalidRequestError("", err.Error()))
		return
	}
	transport.WriteJSON(w, http.StatusOK, updateSettingsResponse{
		Success:  true,
		Message:  "Settings updated",
		Settings: next.Settings(),
	})
}

func (a *Adapter) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.svc.Preferences.Get())
}

func (a *Adapter) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if !a.decodeJSON(w, r, &patch) {
		return
	}
	a.svc.Preferences.Update(r.Context(), patch)
	transport.WriteJSON(w, http.StatusOK, a.svc.Preferences.Get())
}
