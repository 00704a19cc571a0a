package fakebackend

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ctxUser struct{}

func withUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxUser{}, username)
}

func userFrom(r *http.Request) string {
	username, _ := r.Context().Value(ctxUser{}).(string)
	return username
}

func userJSON(acc *account) map[string]any {
	var lastLogin any
	if acc.LastLogin != nil {
		lastLogin = acc.LastLogin.Format(time.RFC3339)
	}
	return map[string]any{
		"id":          acc.ID,
		"username":    acc.Username,
		"email":       acc.Email,
		"first_name":  acc.FirstName,
		"last_name":   acc.LastName,
		"date_joined": acc.Joined.Format(time.RFC3339),
		"last_login":  lastLogin,
	}
}

// Auth

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Invalid JSON."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	problems := map[string][]string{}
	if _, taken := b.accounts[req.Username]; taken {
		problems["username"] = append(problems["username"], "A user with that username already exists.")
	}
	for _, acc := range b.accounts {
		if acc.Email == req.Email {
			problems["email"] = append(problems["email"], "Este email ya está registrado.")
			break
		}
	}
	if req.Password != req.Password2 {
		problems["password"] = append(problems["password"], "Las contraseñas no coinciden.")
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, problems)
		return
	}

	acc := b.addAccount(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	access, refresh := b.issue(acc.Username)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    userJSON(acc),
		"tokens":  map[string]string{"access": access, "refresh": refresh},
		"message": "Usuario registrado exitosamente",
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"This field is required."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[req.Username]
	if !ok || acc.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	access, refresh := b.issue(acc.Username)
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	_ = decode(r, &req)

	b.mu.Lock()
	gate := b.refreshGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	username, ok := b.refresh[req.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	delete(b.refresh, req.Refresh)
	access, refresh := b.issue(username)
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = decode(r, &req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.refresh[req.RefreshToken]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Token inválido"})
		return
	}
	delete(b.refresh, req.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada exitosamente"})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[userFrom(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, userJSON(acc))
}

func (b *Backend) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Email     *string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Invalid JSON."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accounts[userFrom(r)]
	if req.Email != nil {
		for _, other := range b.accounts {
			if other != acc && other.Email == *req.Email {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Este email ya está registrado."}})
				return
			}
		}
		acc.Email = *req.Email
	}
	if req.FirstName != nil {
		acc.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		acc.LastName = *req.LastName
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(acc), "message": "Perfil actualizado"})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword  string `json:"old_password"`
		NewPassword  string `json:"new_password"`
		NewPassword2 string `json:"new_password2"`
	}
	_ = decode(r, &req)

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accounts[userFrom(r)]
	if acc.Password != req.OldPassword {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"old_password": {"Contraseña incorrecta."}})
		return
	}
	if req.NewPassword != req.NewPassword2 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"new_password": {"Las contraseñas no coinciden."}})
		return
	}
	acc.Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada"})
}

// Collections

func (b *Backend) handleList(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.sorted(collection, queryFilters(r)))
	}
}

func (b *Backend) handleCollectionList(w http.ResponseWriter, r *http.Request) {
	b.handleList(chi.URLParam(r, "collection"))(w, r)
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var item map[string]any
	if err := decode(r, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Invalid JSON."}})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusCreated, b.put(chi.URLParam(r, "collection"), item))
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.collections[chi.URLParam(r, "collection")][chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (b *Backend) handlePatch(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Invalid JSON."}})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.collections[chi.URLParam(r, "collection")][chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	for k, v := range patch {
		if k != "id" {
			item[k] = v
		}
	}
	writeJSON(w, http.StatusOK, item)
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	if _, ok := b.collections[collection][id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	delete(b.collections[collection], id)
	w.WriteHeader(http.StatusNoContent)
}

// Enrollment and attendance extras

func (b *Backend) handleVigentes(w http.ResponseWriter, r *http.Request) {
	filters := queryFilters(r)
	filters["estado"] = "vigente"
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.sorted("matriculas", filters))
}

func (b *Backend) handleConDeuda(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0)
	for _, m := range b.sorted("matriculas", queryFilters(r)) {
		if saldo, _ := m["saldo"].(string); saldo != "" && saldo != "0.00" {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleEstadoCuenta(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	m, ok := b.collections["matriculas"][id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No encontrado."})
		return
	}
	saldo, _ := m["saldo"].(string)
	if saldo == "" {
		saldo = "0.00"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matricula": id,
		"saldo":     saldo,
		"pagos":     b.sorted("pagos", map[string]string{"matricula": id}),
	})
}

func (b *Backend) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sesion      string `json:"sesion"`
		Asistencias []struct {
			Alumno   string `json:"alumno"`
			Presente bool   `json:"presente"`
		} `json:"asistencias"`
	}
	if err := decode(r, &req); err != nil || req.Sesion == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"sesion": {"Este campo es requerido."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.collections["sesiones"][req.Sesion]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"sesion": {"Sesión inválida."}})
		return
	}

	// A batch replaces the whole attendance of its session.
	for id, existing := range b.collections["asistencias"] {
		if existing["sesion"] == req.Sesion {
			delete(b.collections["asistencias"], id)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	created := make([]map[string]any, 0, len(req.Asistencias))
	for _, a := range req.Asistencias {
		created = append(created, b.put("asistencias", map[string]any{
			"id":             uuid.New().String(),
			"sesion":         req.Sesion,
			"alumno":         a.Alumno,
			"presente":       a.Presente,
			"registrado_por": userFrom(r),
			"fecha_registro": now,
		}))
	}
	writeJSON(w, http.StatusCreated, created)
}

func queryFilters(r *http.Request) map[string]string {
	filters := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			filters[k] = v[0]
		}
	}
	return filters
}
