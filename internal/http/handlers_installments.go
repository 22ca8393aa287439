package http

import (
	"net/http"
)

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	sim, err := s.debts.SimulateInstallment(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSimulationView(sim))
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput(s.debts.Today().Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, sim, err := s.debts.ApplyInstallment(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, applyView{
		Transaction: newTransactionView(tx),
		Simulation:  newSimulationView(sim),
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, tenors, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	suggestions, err := s.debts.SuggestPlans(r.Context(), in, tenors)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]suggestionView, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, suggestionView{Plan: newPlanView(sg.Plan), Cheapest: sg.Cheapest, Lightest: sg.Lightest})
	}
	writeJSON(w, http.StatusOK, out)
}
