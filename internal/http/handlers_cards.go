package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSuggestBankNames(w http.ResponseWriter, r *http.Request) {
	names := s.debts.SuggestBankNames(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, nameSuggestionsView{Suggestions: names})
}

func (s *Server) handleSuggestCardNames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	names := s.debts.SuggestCardNames(r.Context(), q.Get("bank"), q.Get("q"))
	writeJSON(w, http.StatusOK, nameSuggestionsView{Suggestions: names})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.debts.ListCards(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]cardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, newCardView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.debts.CreateCard(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/cards/"+card.ID)
	writeJSON(w, http.StatusCreated, newCardView(card))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.debts.CardSummary(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardSummaryView(summary))
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.debts.UpdateCard(r.Context(), chi.URLParam(r, "cardID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardView(card))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.debts.DeleteCard(r.Context(), chi.URLParam(r, "cardID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCardTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.debts.ListTransactions(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionViews(txs))
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	txs, err := s.debts.PaymentHistory(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionViews(txs))
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	errs := fieldErrors{}
	amount := errs.amount("amount", req.Amount)
	date := errs.date("date", req.Date, s.debts.Today().Location())
	if err := errs.orNil(); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.debts.RecordPayment(r.Context(), chi.URLParam(r, "cardID"), amount, date, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionView(tx))
}
