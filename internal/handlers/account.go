package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jjudge-oj/accounts/internal/services"
	"github.com/jjudge-oj/accounts/types"
)

const (
	msgAccountCreated = "Account created successfully!"
	msgLoginOK        = "Login successful!"
)

// AccountHandler provides the sign-up, sign-in and listing endpoints.
type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(r chi.Router, accountService *services.AccountService) {
	handler := NewAccountHandler(accountService)

	r.Post("/signup", handler.Signup)
	r.Post("/signin", handler.Signin)
	r.Get("/users", handler.ListUsers)
}

type SignupRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
}

type SigninRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type AccountResponse struct {
	Message string            `json:"message"`
	User    types.AccountView `json:"user"`
}

// Signup creates an account.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	view, err := h.accountService.CreateAccount(r.Context(), services.CreateAccountInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AccountResponse{Message: msgAccountCreated, User: view})
}

// Signin verifies credentials and records the login.
func (h *AccountHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	view, err := h.accountService.Authenticate(r.Context(), services.AuthenticateInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{Message: msgLoginOK, User: view})
}

// ListUsers returns every account's public view.
func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	views, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
