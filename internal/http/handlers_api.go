package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"finset/internal/core"
	"finset/internal/log"
)

type healthResponse struct {
	Status  string     `json:"status"`
	Time    *time.Time `json:"time,omitempty"`
	Message string     `json:"message,omitempty"`
}

// handleAPIHealth reports the database clock, proving the store answers.
func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	now, err := s.service.Health(ctx)
	if err != nil {
		s.structured.LogError(r.Context(), "Health check failed", err, log.ComponentStorage, log.OpRead, nil)
		NewResponse().Status(http.StatusInternalServerError).
			JSON(healthResponse{Status: "error", Message: err.Error()}).
			Write(w)
		return
	}
	NewResponse().JSON(healthResponse{Status: "ok", Time: &now}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	tx, err := s.service.Create(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.invalidate()
	atomic.AddInt64(&s.appMetrics.created, 1)
	s.structured.LogTransactionCreated(r.Context(), tx.ID, string(tx.Type), core.FormatAmount(tx.Amount), tx.Category, tx.Date.String())

	NewResponse().Status(http.StatusCreated).JSON(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.invalidate()
	atomic.AddInt64(&s.appMetrics.deleted, 1)
	s.structured.LogTransactionDeleted(r.Context(), id)

	NewResponse().JSON(map[string]bool{"ok": true}).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, maxImportBytes, &req); err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	if req.Transactions == nil {
		s.writeError(w, r, log.OpImport, errImportRequired)
		return
	}

	res, err := s.service.Import(r.Context(), req.inputs())
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	if res.Inserted > 0 {
		s.invalidate()
		atomic.AddInt64(&s.appMetrics.imported, int64(res.Inserted))
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transactions imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, res.Inserted,
		"skipped", res.Skipped)

	NewResponse().JSON(res).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(st).Write(w)
}

func (s *Server) handleMonthlyFlow(w http.ResponseWriter, r *http.Request) {
	rows, err := s.monthlyFlow(r.Context(), parseMonths(r.URL.Query()))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(rows).Write(w)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	rows, err := s.categoryBreakdown(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(rows).Write(w)
}
