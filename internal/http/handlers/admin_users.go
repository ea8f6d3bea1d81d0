package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dapoer-buffet-services/internal/auth"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials, opens a DB-backed session row and returns a
// signed access token. Tokens stay valid only while the session row does.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	var (
		userID       int64
		name         pgtype.Text
		passwordHash string
		role         string
		isActive     bool
	)
	err := h.DB.QueryRow(ctx, `
		select id, name, password_hash, role, is_active
		from users
		where lower(email) = $1 and deleted_at is null
	`, email).Scan(&userID, &name, &passwordHash, &role, &isActive)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if !isActive {
		response.Error(w, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(body.Password)) != nil {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	expiry := time.Duration(h.Config.JWTExpirySeconds) * time.Second
	var sessionID int64
	err = h.DB.QueryRow(ctx, `
		insert into user_sessions (user_id, status, created_at, expires_at)
		values ($1, 'ACTIVE', now(), $2)
		returning id
	`, userID, time.Now().Add(expiry)).Scan(&sessionID)
	if err != nil {
		h.Logger.Error("session insert failed", zap.Int64("userId", userID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session")
		return
	}

	claims := &auth.Claims{
		UserID:    strconv.FormatInt(userID, 10),
		SessionID: strconv.FormatInt(sessionID, 10),
		Role:      auth.UserRole(role),
		Email:     email,
	}
	if name.Valid && name.String != "" {
		claims.Name = &name.String
	}
	token, err := auth.SignAccessToken(claims, h.Config.JWTSecret, expiry)
	if err != nil {
		h.Logger.Error("token sign failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign token")
		return
	}

	response.Success(w, map[string]any{
		"token":     token,
		"expiresIn": h.Config.JWTExpirySeconds,
		"user": map[string]any{
			"id":    userID,
			"email": email,
			"name":  nullIfEmptyText(name),
			"role":  role,
		},
	})
}

type userRequest struct {
	Email       string   `json:"email"`
	Name        *string  `json:"name"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"isActive"`
}

func validUserRole(role string) bool {
	switch auth.UserRole(role) {
	case auth.RoleAdmin, auth.RoleStaff, auth.RoleKitchen:
		return true
	}
	return false
}

func (h *Handler) AdminUsersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.DB.Query(ctx, `
		select id, email, name, role, coalesce(permissions, '{}'), is_active, created_at
		from users
		where deleted_at is null
		order by email
	`)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load users")
		return
	}
	defer rows.Close()

	users := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id          int64
			email       string
			name        pgtype.Text
			role        string
			permissions []string
			isActive    bool
			createdAt   time.Time
		)
		if err := rows.Scan(&id, &email, &name, &role, &permissions, &isActive, &createdAt); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load users")
			return
		}
		users = append(users, map[string]any{
			"id":          id,
			"email":       email,
			"name":        nullIfEmptyText(name),
			"role":        role,
			"permissions": permissions,
			"isActive":    isActive,
			"createdAt":   createdAt,
		})
	}

	response.Success(w, users)
}

func (h *Handler) AdminUsersCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body userRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email is required")
		return
	}
	if len(body.Password) < 8 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Password must be at least 8 characters")
		return
	}
	if !validUserRole(body.Role) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}
	if body.Permissions == nil {
		body.Permissions = []string{}
	}

	var id int64
	err = h.DB.QueryRow(ctx, `
		insert into users (email, name, password_hash, role, permissions, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, now(), now())
		returning id
	`, email, body.Name, string(hash), body.Role, body.Permissions, isActive).Scan(&id)
	if err != nil {
		h.Logger.Error("user insert failed", zap.String("email", email), zap.Error(err))
		response.Error(w, http.StatusConflict, "USER_EXISTS", "A user with this email already exists")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminUsersUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user id")
		return
	}

	var body userRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if !validUserRole(body.Role) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid role")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}
	if body.Permissions == nil {
		body.Permissions = []string{}
	}

	tag, err := h.DB.Exec(ctx, `
		update users
		set name = $2, role = $3, permissions = $4, is_active = $5, updated_at = now()
		where id = $1 and deleted_at is null
	`, id, body.Name, body.Role, body.Permissions, isActive)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update user")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	if body.Password != "" {
		if len(body.Password) < 8 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update user")
			return
		}
		if _, err := h.DB.Exec(ctx, `update users set password_hash = $2, updated_at = now() where id = $1`, id, string(hash)); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update user")
			return
		}
	}

	// Deactivation cuts existing sessions so tokens die with the account.
	if !isActive {
		if _, err := h.DB.Exec(ctx, `update user_sessions set status = 'REVOKED' where user_id = $1 and status = 'ACTIVE'`, id); err != nil {
			h.Logger.Warn("session revoke failed", zap.Int64("userId", id), zap.Error(err))
		}
	}

	response.Success(w, map[string]any{"id": id})
}

func (h *Handler) AdminUsersDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update users set deleted_at = now(), is_active = false, updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete user")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	if _, err := h.DB.Exec(ctx, `update user_sessions set status = 'REVOKED' where user_id = $1 and status = 'ACTIVE'`, id); err != nil {
		h.Logger.Warn("session revoke failed", zap.Int64("userId", id), zap.Error(err))
	}

	response.Success(w, map[string]any{"id": id, "deleted": true})
}
