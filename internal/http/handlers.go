package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/csvio"
	"financas/internal/metrics"
)

const maxImportBytes = 10 << 20

type transactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	User        string `json:"user"`
	Date        string `json:"date"`
}

type transactionView struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	User        string `json:"user"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
}

func viewTransaction(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount.Decimal(),
		Category:    t.Category,
		User:        t.User,
		Date:        t.Date.ISO(),
		Kind:        string(t.Kind),
	}
}

func viewTransactions(txs []core.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, t := range txs {
		out[i] = viewTransaction(t)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseTransaction builds a validated transaction from the request body.
// The gate runs before any store call: an invalid amount or date never
// reaches the backend.
func parseTransaction(r *http.Request, kind core.Kind) (core.Transaction, error) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}
	t := core.Transaction{
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		User:        req.User,
		Date:        core.Date{Time: date},
		Kind:        kind,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	s.createTransaction(w, r, core.Income)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.createTransaction(w, r, core.Expense)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	t, err := parseTransaction(r, kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordsCreated.WithLabelValues(string(kind)).Inc()
	s.publish(r.Context(), amqp.EntityTransaction, string(kind), amqp.ActionCreated, id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.deleteTransaction(w, r, core.Income)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteTransaction(w, r, core.Expense)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteTransaction(r.Context(), kind, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordsDeleted.WithLabelValues(string(kind)).Inc()
	s.publish(r.Context(), amqp.EntityTransaction, string(kind), amqp.ActionDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		AppliesTo string `json:"applies_to"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := core.Category{Name: req.Name, AppliesTo: core.Kind(req.AppliesTo)}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordsCreated.WithLabelValues("category").Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		TargetAmount  string `json:"target_amount"`
		CurrentAmount string `json:"current_amount"`
		DueDate       string `json:"due_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := core.ParseDecimalToCents(req.TargetAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var current int64
	if req.CurrentAmount != "" {
		current, err = core.ParseSignedDecimalToCents(req.CurrentAmount)
		if err != nil || current < 0 {
			writeError(w, http.StatusBadRequest, core.ErrInvalidAmount.Error())
			return
		}
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ErrInvalidDate.Error())
		return
	}
	g := core.Goal{
		Name:          req.Name,
		TargetAmount:  core.Money{Cents: target},
		CurrentAmount: core.Money{Cents: current},
		DueDate:       core.Date{Time: due},
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.CreateGoal(r.Context(), g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordsCreated.WithLabelValues("goal").Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordsDeleted.WithLabelValues("goal").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u := core.UserLabel{Name: req.Name}
	if err := u.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.CreateUser(r.Context(), u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordsCreated.WithLabelValues("user").Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpsertBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The initial balance is the one amount whose sign is unrestricted.
	cents, err := core.ParseSignedDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpsertInitialBalance(r.Context(), core.Money{Cents: cents}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.publish(r.Context(), amqp.EntityBalance, "", amqp.ActionUpdated, "")
	w.WriteHeader(http.StatusNoContent)
}

type goalView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"`
	DueDate       string `json:"due_date"`
	Progress      int    `json:"progress"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	o := s.overview.Current()

	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	goalViews := make([]goalView, len(goals))
	for i, g := range goals {
		goalViews[i] = goalView{
			ID:            g.ID,
			Name:          g.Name,
			TargetAmount:  g.TargetAmount.Decimal(),
			CurrentAmount: g.CurrentAmount.Decimal(),
			DueDate:       g.DueDate.ISO(),
			Progress:      g.Progress(),
		}
	}

	months := make([]map[string]any, len(o.Months))
	for i, m := range o.Months {
		months[i] = map[string]any{
			"month_key": m.MonthKey,
			"month":     m.Month,
			"incomes":   m.Incomes.Decimal(),
			"expenses":  m.Expenses.Decimal(),
			"balance":   m.Balance.Decimal(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"initial_balance": o.InitialBalance.Decimal(),
		"incomes":         viewTransactions(o.Incomes),
		"expenses":        viewTransactions(o.Expenses),
		"months":          months,
		"categories":      cats,
		"goals":           goalViews,
		"users":           users,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var start, end core.Date
	if v := r.URL.Query().Get("start"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		start = core.Date{Time: d}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		end = core.Date{Time: d}
	}

	sum := s.overview.Summarize(start, end)

	byUser := make([]map[string]string, len(sum.ByUser))
	for i, u := range sum.ByUser {
		byUser[i] = map[string]string{
			"user":    u.User,
			"income":  u.Income.Decimal(),
			"expense": u.Expense.Decimal(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_incomes":       sum.TotalIncomes.Decimal(),
		"total_expenses":      sum.TotalExpenses.Decimal(),
		"current_balance":     sum.CurrentBalance.Decimal(),
		"income_by_category":  decimalMap(sum.IncomeByCategory),
		"expense_by_category": decimalMap(sum.ExpenseByCategory),
		"income_by_user":      decimalMap(sum.IncomeByUser),
		"expense_by_user":     decimalMap(sum.ExpenseByUser),
		"by_user":             byUser,
	})
}

func decimalMap(m map[string]core.Money) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.Decimal()
	}
	return out
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.store.ListTransactions(r.Context(), core.Income)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	expenses, err := s.store.ListTransactions(r.Context(), core.Expense)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	balance, err := s.store.InitialBalance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := csvio.Export(csvio.Dataset{
		InitialBalance: balance,
		Incomes:        incomes,
		Expenses:       expenses,
	}, time.Now())

	metrics.Exports.Inc()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvio.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	res, err := csvio.Import(r.Context(), data, s.store)
	if errors.Is(err, csvio.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.ImportRows.WithLabelValues("accepted").Add(float64(res.Accepted))
	metrics.ImportRows.WithLabelValues("skipped").Add(float64(res.Skipped))
	s.publish(r.Context(), amqp.EntityTransaction, "", amqp.ActionImported, "")
	writeJSON(w, http.StatusOK, map[string]int{
		"accepted": res.Accepted,
		"skipped":  res.Skipped,
	})
}
