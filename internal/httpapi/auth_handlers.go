package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tasklane.org/internal/accounts"
	"tasklane.org/internal/audit"
	"tasklane.org/internal/auth"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Identity  auth.Identity `json:"identity"`
	Account   accounts.View `json:"account"`
	Token     string        `json:"token,omitempty"`
	TokenType string        `json:"tokenType,omitempty"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req accounts.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.accounts.Register(r.Context(), req)
	if err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "account.registered", map[string]any{
		"new_account_id": acct.ID,
		"new_username":   acct.Username,
	})
	w.Header().Set("Location", "/accounts/"+strconv.FormatInt(acct.ID, 10))
	writeJSON(w, http.StatusCreated, acct.View())
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	mode := string(a.auth.Mode())
	presented := session.ReadCookie(r, a.cookie)

	res, err := a.auth.Login(r.Context(), req.Username, req.Password, presented)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.ObserveLogin(mode, "rejected")
			_ = audit.LogEvent(r.Context(), "auth.login.rejected", map[string]any{"username": req.Username})
			w.Header().Set("WWW-Authenticate", a.challenge())
			writeError(w, r, http.StatusUnauthorized, "invalid username or password")
			return
		}
		obs.ObserveLogin(mode, "error")
		a.logger.ErrorContext(r.Context(), "login failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	acct, found, err := a.accounts.FindAccountByID(r.Context(), res.Identity.AccountID)
	if err != nil || !found {
		obs.ObserveLogin(mode, "error")
		a.logger.ErrorContext(r.Context(), "account vanished during login", "account_id", res.Identity.AccountID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), res.Identity, auth.Source(mode))
	resp := loginResponse{Identity: res.Identity, Account: acct.View()}
	switch a.auth.Mode() {
	case auth.ModeToken:
		resp.Token = res.Token
		resp.TokenType = "Bearer"
		resp.ExpiresAt = &res.ExpiresAt
	case auth.ModeSession:
		session.SetCookie(w, res.SessionID, a.cookie)
	}
	obs.ObserveLogin(mode, "ok")
	_ = audit.LogEvent(ctx, "auth.login.succeeded", map[string]any{"mode": mode})
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{"mode": string(a.auth.Mode())})
	if err := a.auth.Logout(r.Context(), session.ReadCookie(r, a.cookie)); err != nil {
		a.logger.ErrorContext(r.Context(), "logout failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if a.auth.Mode() == auth.ModeSession {
		session.ClearCookie(w, a.cookie)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	acct, found, err := a.accounts.FindAccountByID(r.Context(), identity.AccountID)
	if err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	if !found {
		a.unauthorized(w, r)
		return
	}
	writeJSON(w, http.StatusOK, acct.View())
}

func (a *API) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.identity(w, r); !ok {
		return
	}
	list, err := a.accounts.List(r.Context())
	if err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	views := make([]accounts.View, 0, len(list))
	for _, acct := range list {
		views = append(views, acct.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// ownAccountID resolves {id} and requires it to be the caller's account.
// Other accounts are reported as missing.
func (a *API) ownAccountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	identity, ok := a.identity(w, r)
	if !ok {
		return 0, false
	}
	id, ok := pathID(r, "id")
	if !ok || id != identity.AccountID {
		writeError(w, r, http.StatusNotFound, "account not found")
		return 0, false
	}
	return id, true
}

func (a *API) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownAccountID(w, r)
	if !ok {
		return
	}
	acct, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct.View())
}

func (a *API) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownAccountID(w, r)
	if !ok {
		return
	}
	var patch accounts.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.accounts.Update(r.Context(), id, patch)
	if err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	if current, _ := auth.IdentityFromContext(r.Context()); current.Username != acct.Username {
		a.rebindSessions(w, r, auth.Identity{AccountID: acct.ID, Username: acct.Username})
	}
	_ = audit.LogEvent(r.Context(), "account.updated", map[string]any{
		"username_changed": patch.Username != nil,
		"email_changed":    patch.Email != nil,
		"password_changed": patch.Password != nil,
	})
	writeJSON(w, http.StatusOK, acct.View())
}

// rebindSessions carries a renamed identity into session state. Other
// sessions of the account are renamed where the store supports it; the
// presented session is replaced and its cookie reissued.
func (a *API) rebindSessions(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	if a.auth.Mode() != auth.ModeSession {
		return
	}
	ctx := r.Context()
	if a.renamer != nil {
		if err := a.renamer.RenameAccount(ctx, identity.AccountID, identity.Username); err != nil {
			a.logger.ErrorContext(ctx, "rename account sessions", "error", err)
		}
	}
	id, err := a.auth.Rebind(ctx, session.ReadCookie(r, a.cookie), identity)
	if err != nil {
		a.logger.ErrorContext(ctx, "rebind session after rename", "error", err)
		return
	}
	if id != "" {
		session.SetCookie(w, id, a.cookie)
	}
}

func (a *API) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownAccountID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	removed, err := a.todos.DeleteAll(ctx, id)
	if err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	if err := a.accounts.Delete(ctx, id); err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	if a.auth.Mode() == auth.ModeSession {
		if err := a.auth.Logout(ctx, session.ReadCookie(r, a.cookie)); err != nil {
			a.logger.ErrorContext(ctx, "invalidate session after account deletion", "error", err)
		}
		if a.purger != nil {
			if err := a.purger.InvalidateAccount(ctx, id); err != nil {
				a.logger.ErrorContext(ctx, "purge account sessions", "error", err)
			}
		}
		session.ClearCookie(w, a.cookie)
	}
	_ = audit.LogEvent(ctx, "account.deleted", map[string]any{"todos_removed": removed})
	w.WriteHeader(http.StatusNoContent)
}
