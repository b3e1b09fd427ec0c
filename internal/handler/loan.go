package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/service"
	"github.com/finloop/loan-management/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.CreateLoan(r.Context(), userID, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, result)
}

// ListLoans handles GET /loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	loans, err := h.service.ListLoans(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, &domain.LoanListResponse{Loans: loans})
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	loanID := mux.Vars(r)["loanId"]
	schedule, err := h.service.GetSchedule(r.Context(), loanID, userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, schedule)
}

// Foreclose handles POST /loans/{loanId}/foreclose
func (h *LoanHandler) Foreclose(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	loanID := mux.Vars(r)["loanId"]
	result, err := h.service.Foreclose(r.Context(), loanID, userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, result)
}

// AdminListLoans handles GET /admin/loans
func (h *LoanHandler) AdminListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.AdminListLoans(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, &domain.LoanListResponse{Loans: loans})
}

// AdminListLoansWithOwners handles GET /admin/loans/users
func (h *LoanHandler) AdminListLoansWithOwners(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.AdminListLoansWithOwners(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, &domain.AdminLoanListResponse{Loans: loans})
}

// DeleteLoan handles DELETE /admin/loans/{loanId}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]
	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Loan deleted successfully."})
}
