package httpapi

import (
	"net/http"
	"strconv"

	"tasklane.org/internal/audit"
	"tasklane.org/internal/todos"
)

func (a *API) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	var draft todos.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Tokens stay valid after their account is deleted.
	_, found, err := a.accounts.FindAccountByID(r.Context(), identity.AccountID)
	if err != nil {
		a.handleAccountError(w, r, err)
		return
	}
	if !found {
		a.unauthorized(w, r)
		return
	}
	todo, err := a.todos.Create(r.Context(), identity.AccountID, draft)
	if err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "todo.created", map[string]any{"todo_id": todo.ID})
	w.Header().Set("Location", "/todos/"+strconv.FormatInt(todo.ID, 10))
	writeJSON(w, http.StatusCreated, todo)
}

func (a *API) handleListTodos(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	list, err := a.todos.List(r.Context(), identity.AccountID)
	if err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleListAccountTodos(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(r, "accountId")
	if !ok || accountID != identity.AccountID {
		writeError(w, r, http.StatusNotFound, "account not found")
		return
	}
	list, err := a.todos.List(r.Context(), accountID)
	if err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, "todo not found")
		return
	}
	todo, err := a.todos.Get(r.Context(), identity.AccountID, id)
	if err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (a *API) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, "todo not found")
		return
	}
	var patch todos.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	todo, err := a.todos.Update(r.Context(), identity.AccountID, id, patch)
	if err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "todo.updated", map[string]any{"todo_id": todo.ID})
	writeJSON(w, http.StatusOK, todo)
}

func (a *API) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.identity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, "todo not found")
		return
	}
	if err := a.todos.Delete(r.Context(), identity.AccountID, id); err != nil {
		a.handleTodoError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "todo.deleted", map[string]any{"todo_id": id})
	w.WriteHeader(http.StatusNoContent)
}
