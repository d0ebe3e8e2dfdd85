package http

import (
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

func (a *Adapter) handleDBStatus(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.svc.Connections.DBStatus())
}

func (a *Adapter) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.svc.Connections.Status())
}

type connectionResponse struct {
	Success      bool                  `json:"success"`
	ConnectionID string                `json:"connection_id,omitempty"`
	Connection   *api.ConnectionConfig `json:"connection,omitempty"`
	Status       *api.Status           `json:"status,omitempty"`
	Message      string                `json:"message,omitempty"`
}

func (a *Adapter) handleAddConnection(w http.ResponseWriter, r *http.Request) {
	var in api.ConnectionInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	if apiErr := api.ValidateConnectionInput(in); apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}

	id := a.svc.Connections.Add(r.Context(), in.Config())
	resp := connectionResponse{Success: true, ConnectionID: id, Message: "Connection added"}
	if cfg, ok := a.svc.Connections.Get(id); ok {
		resp.Connection = &cfg
	}
	transport.WriteJSON(w, http.StatusCreated, resp)
}

func (a *Adapter) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateConnectionID(id) {
		transport.WriteError(w, api.NewInvalidRequestError("id", "malformed connection ID"))
		return
	}
	var in api.ConnectionInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	if apiErr := api.ValidateConnectionInput(in); apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}

	if err := a.svc.Connections.Update(r.Context(), id, in.Config()); err != nil {
		transport.WriteError(w, err)
		return
	}
	resp := connectionResponse{Success: true, ConnectionID: id, Message: "Connection updated"}
	if cfg, ok := a.svc.Connections.Get(id); ok {
		resp.Connection = &cfg
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

func (a *Adapter) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.svc.Connections.Delete(r.Context(), id); err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, connectionResponse{Success: true, ConnectionID: id, Message: "Connection deleted"})
}

// handleConnect switches the session to the given connection. Failures keep
// the previous active connection and answer 500 with the reason.
func (a *Adapter) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.svc.Connections.Connect(r.Context(), id); err != nil {
		transport.WriteError(w, err)
		return
	}
	st := a.svc.Connections.Status()
	transport.WriteJSON(w, http.StatusOK, connectionResponse{
		Success:      true,
		ConnectionID: id,
		Connection:   st.ActiveConnection,
		Status:       &st,
		Message:      "Connected",
	})
}

func (a *Adapter) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	a.svc.Connections.Disconnect(r.Context())
	st := a.svc.Connections.Status()
	transport.WriteJSON(w, http.StatusOK, connectionResponse{Success: true, Status: &st, Message: "Disconnected"})
}

type validateConnectionRequest struct {
	DBPath         string `json:"db_path"`
	CollectionName string `json:"collection_name"`
}

func (a *Adapter) handleValidateConnection(w http.ResponseWriter, r *http.Request) {
	var req validateConnectionRequest
	if !a.decodeValidation(w, r, &req) {
		return
	}
	transport.WriteJSON(w, http.StatusOK, a.svc.Connections.Validate(r.Context(), req.DBPath, req.CollectionName))
}

type createCollectionRequest struct {
	DBPath         string            `json:"db_path"`
	CollectionName string            `json:"collection_name"`
	Metadata       map[string]string `json:"metadata"`
}

type createCollectionResponse struct {
	Success    bool              `json:"success"`
	Collection api.CollectionRef `json:"collection"`
	Message    string            `json:"message"`
}

func (a *Adapter) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	ref, err := a.svc.Connections.CreateCollection(r.Context(), req.DBPath, req.CollectionName, req.Metadata)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, createCollectionResponse{
		Success:    true,
		Collection: ref,
		Message:    "Collection " + ref.Name + " created",
	})
}
