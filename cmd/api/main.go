package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finwise/loanengine/pkg/cache"
	"github.com/finwise/loanengine/pkg/config"
	"github.com/finwise/loanengine/pkg/engine"
	"github.com/finwise/loanengine/pkg/ledger"
	"github.com/finwise/loanengine/pkg/models"
	"github.com/finwise/loanengine/pkg/store"
)

// Server holds the ledger instance and its collaborators.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage
	log     *logrus.Logger
}

func NewServer(s store.Storage, c cache.Cache, log *logrus.Logger) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s, c, log),
		storage: s,
		log:     log,
	}
}

// statusFor maps engine and lookup errors to HTTP status codes. The payment
// errors are all caller-recoverable; the UI shows them verbatim.
func statusFor(err error) int {
	var insufficient *engine.InsufficientFundsError
	switch {
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidLoanConfiguration):
		return http.StatusBadRequest
	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrLoanAlreadyCompleted),
		errors.Is(err, engine.ErrExceedsRemainingBalance):
		return http.StatusConflict
	case errors.Is(err, store.ErrLoanNotFound), errors.Is(err, store.ErrAccountNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func parseLoanID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name               string           `json:"name"`
		Principal          decimal.Decimal  `json:"principal"`
		PaymentType        string           `json:"payment_type"`
		InterestRateAnnual decimal.Decimal  `json:"interest_rate_annual"`
		FixedCharge        decimal.Decimal  `json:"fixed_charge"`
		FixedChargeFreq    string           `json:"fixed_charge_frequency"`
		PaymentFrequency   string           `json:"payment_frequency"`
		TermMonths         int              `json:"term_months"`
		ManualTotalToPay   *decimal.Decimal `json:"manual_total_to_pay"`
		FirstDueDate       *time.Time       `json:"first_due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payFreq, err := models.ParseFrequency(req.PaymentFrequency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var chargeFreq models.Frequency
	if req.FixedChargeFreq != "" {
		chargeFreq, err = models.ParseFrequency(req.FixedChargeFreq)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	loan, err := s.ledger.CreateLoan(ledger.CreateLoanInput{
		Name:               req.Name,
		Principal:          req.Principal,
		PaymentType:        models.PaymentType(req.PaymentType),
		InterestRateAnnual: req.InterestRateAnnual,
		FixedCharge:        req.FixedCharge,
		FixedChargeFreq:    chargeFreq,
		PaymentFrequency:   payFreq,
		TermMonths:         req.TermMonths,
		ManualTotalToPay:   req.ManualTotalToPay,
		FirstDueDate:       req.FirstDueDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	loan, err := s.ledger.GetLoan(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.GetAllLoans()
	if err != nil {
		writeError(w, err)
		return
	}
	if loans == nil {
		loans = []*models.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	if err := s.ledger.DeleteLoan(loanID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Method string          `json:"method"`
		Date   *time.Time      `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	method, err := models.ParsePaymentMethod(req.Method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	at := time.Now()
	if req.Date != nil {
		at = *req.Date
	}

	result, err := s.ledger.RecordPayment(loanID, req.Amount, method, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"loan":      result.Loan,
		"balance":   result.Balance,
		"breakdown": result.Breakdown,
		"completed": result.Completed,
	})
}

func (s *Server) minimumPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	at := time.Now()
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		at, err = time.Parse(time.RFC3339, atStr)
		if err != nil {
			http.Error(w, "Invalid 'at' timestamp", http.StatusBadRequest)
			return
		}
	}
	minimum, err := s.ledger.MinimumPayment(loanID, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"minimum_payment": minimum})
}

func (s *Server) splitHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}
	breakdown, err := s.ledger.PreviewSplit(loanID, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) totalToPayHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	total, err := s.ledger.TotalToPay(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"total_to_pay": total})
}

func (s *Server) transactionsHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := parseLoanID(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}
	transactions, err := s.ledger.GetTransactionsForLoan(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principal, err := decimal.NewFromString(q.Get("principal"))
	if err != nil {
		http.Error(w, "Invalid principal", http.StatusBadRequest)
		return
	}
	rate, err := decimal.NewFromString(q.Get("rate"))
	if err != nil {
		http.Error(w, "Invalid rate", http.StatusBadRequest)
		return
	}
	term, err := strconv.Atoi(q.Get("term"))
	if err != nil {
		http.Error(w, "Invalid term", http.StatusBadRequest)
		return
	}

	installment := s.ledger.QuoteInstallment(principal, rate, term)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"installment":  installment,
		"total_to_pay": installment.Mul(decimal.NewFromInt(int64(term))),
	})
}

func (s *Server) getAccountHandler(w http.ResponseWriter, r *http.Request) {
	account, err := s.ledger.GetAccount(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) depositHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	account, err := s.ledger.Deposit(mux.Vars(r)["id"], req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/payments", s.recordPaymentHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/minimum-payment", s.minimumPaymentHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/split", s.splitHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/total-to-pay", s.totalToPayHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/transactions", s.transactionsHandler).Methods("GET")
	router.HandleFunc("/quote", s.quoteHandler).Methods("GET")
	router.HandleFunc("/accounts/{id}", s.getAccountHandler).Methods("GET")
	router.HandleFunc("/accounts/{id}/deposit", s.depositHandler).Methods("POST")
	return router
}

func main() {
	_ = godotenv.Load()
	cfg := config.NewConfig()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	var quoteCache cache.Cache
	if cfg.RedisAddr != "" {
		quoteCache = cache.NewRedis(cfg.RedisAddr)
		log.Infof("Quote cache: redis at %s", cfg.RedisAddr)
	} else {
		quoteCache = cache.NewMemory()
		log.Info("Quote cache: in-memory")
	}

	server := NewServer(sqliteStore, quoteCache, log)
	if err := server.ledger.SeedAccounts(); err != nil {
		log.Fatalf("Failed to seed accounts: %v", err)
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.OverdueCron, func() {
		n := server.ledger.SweepOverdue(time.Now())
		log.Infof("Overdue sweep complete: %d loans past due", n)
	}); err != nil {
		log.Fatalf("Invalid overdue sweep schedule %q: %v", cfg.OverdueCron, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      server.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorf("Server error: %v", err)
		return
	case <-quit:
		log.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("Error during server shutdown: %v", err)
	}
	log.Info("Server exited")
}
