package http

import (
	"net/http"

	"catorcena/internal/core"
	applog "catorcena/internal/log"

	"github.com/gorilla/mux"
)

type createdResponse struct {
	ID string `json:"id"`
}

type chargeCreatedResponse struct {
	CardID string `json:"card_id"`
	Index  int    `json:"index"`
}

func (s *Server) saveMovement(w http.ResponseWriter, r *http.Request, id string, status int) {
	var m core.MovementRecord
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	m.ID = id
	saved, err := s.svc.SaveMovement(r.Context(), m)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, status, createdResponse{ID: saved})
}

func (s *Server) handleCreateMovement(w http.ResponseWriter, r *http.Request) {
	s.saveMovement(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateMovement(w http.ResponseWriter, r *http.Request) {
	s.saveMovement(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) handleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteMovement(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveCard(w http.ResponseWriter, r *http.Request, id string, status int) {
	var c core.CardRecord
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c.ID = id
	saved, err := s.svc.SaveCard(r.Context(), c)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, status, createdResponse{ID: saved})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	s.saveCard(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	s.saveCard(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCard(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddCharge(w http.ResponseWriter, r *http.Request) {
	var ch core.ChargeRecord
	if err := decodeJSON(r, &ch); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	cardID := mux.Vars(r)["id"]
	idx, err := s.svc.AddCharge(r.Context(), cardID, ch)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, chargeCreatedResponse{CardID: cardID, Index: idx})
}

func (s *Server) handleDeleteCharge(w http.ResponseWriter, r *http.Request) {
	idx, err := intVar(r, "index")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.svc.DeleteCharge(r.Context(), mux.Vars(r)["id"], idx); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveDebitAccount(w http.ResponseWriter, r *http.Request, id string, status int) {
	var a core.DebitAccountRecord
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	a.ID = id
	saved, err := s.svc.SaveDebitAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, status, createdResponse{ID: saved})
}

func (s *Server) handleCreateDebitAccount(w http.ResponseWriter, r *http.Request) {
	s.saveDebitAccount(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateDebitAccount(w http.ResponseWriter, r *http.Request) {
	s.saveDebitAccount(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) handleDeleteDebitAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteDebitAccount(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddDebitMovement(w http.ResponseWriter, r *http.Request) {
	var m core.DebitMovementRecord
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	id, err := s.svc.AddDebitMovement(r.Context(), mux.Vars(r)["id"], m)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleDeleteDebitMovement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.DeleteDebitMovement(r.Context(), vars["id"], vars["movementID"]); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
