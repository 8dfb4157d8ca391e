package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-p5/internal/rbac"
)

// UserLookup resolves a login name to a user id and stored role.
type UserLookup interface {
	LookupUser(ctx context.Context, username string) (id, role string, err error)
}

var ErrUnknownUser = errors.New("unknown user")

type SQLUserLookup struct{ DB *sql.DB }

func (l SQLUserLookup) LookupUser(ctx context.Context, username string) (string, string, error) {
	var id, role string
	err := l.DB.QueryRowContext(ctx, `SELECT id, role FROM users WHERE username=$1`, username).Scan(&id, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrUnknownUser
	}
	return id, role, err
}

type LoginConfig struct {
	AdminUser     string
	AdminPassHash string // bcrypt
	Users         UserLookup
	// DevPasswords accepts password == username for users in the users table.
	DevPasswords bool
	Log          *slog.Logger
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

var validate = validator.New()

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, cfg LoginConfig) http.HandlerFunc {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}

		sub, role, ok := "", "", false
		switch {
		case cfg.AdminUser != "" && req.Username == cfg.AdminUser:
			ok = bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassHash), []byte(req.Password)) == nil
			sub, role = req.Username, "admin"
		case cfg.Users != nil && cfg.DevPasswords && req.Username == req.Password:
			id, stored, err := cfg.Users.LookupUser(r.Context(), req.Username)
			if err != nil && !errors.Is(err, ErrUnknownUser) {
				log.ErrorContext(r.Context(), "login lookup", "username", req.Username, "err", err)
				http.Error(w, "login failed", http.StatusInternalServerError)
				return
			}
			ok = err == nil
			sub, role = id, stored
		}
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(sub, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": tok,
			"role":         rbac.NormalizeRole(role),
			"sub":          sub,
		})
	}
}
