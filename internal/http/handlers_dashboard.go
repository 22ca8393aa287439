package http

import "net/http"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.debts.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPortfolioView(portfolio))
}

// handleReminders lists today's overdue and upcoming bills.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	bills, err := s.debts.Bills(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBillsView(bills, s.debts.Today()))
}
