package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"` // student|admin
	CreatedAt time.Time `json:"created_at"`
}

// POST /auth/register  { "email": "...", "password": "...", "full_name": "...", "role": "student|admin" }
func RegisterHandler(db *sql.DB, a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			FullName string `json:"full_name"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Role == "" {
			req.Role = "student"
		}
		if req.Email == "" || req.Password == "" || req.FullName == "" {
			http.Error(w, "email, password and full_name required", http.StatusBadRequest)
			return
		}
		if req.Role != "student" && req.Role != "admin" {
			http.Error(w, "role must be student or admin", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		p := Profile{
			ID:        uuid.NewString(),
			Email:     req.Email,
			FullName:  req.FullName,
			Role:      req.Role,
			CreatedAt: time.Now().UTC(),
		}
		_, err = db.ExecContext(r.Context(),
			`INSERT INTO profiles (id,email,full_name,role,password_hash,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			p.ID, p.Email, p.FullName, p.Role, string(hash), p.CreatedAt.Unix())
		if err != nil {
			if isUniqueViolation(err) {
				http.Error(w, "email already registered", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(p.ID, p.Role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "profile": p})
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(db *sql.DB, a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var (
			p       Profile
			hash    string
			created int64
		)
		err := db.QueryRowContext(r.Context(),
			`SELECT id,email,full_name,role,password_hash,created_at FROM profiles WHERE email=$1`,
			strings.ToLower(strings.TrimSpace(req.Email)),
		).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &hash, &created)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		tok, err := a.IssueJWT(p.ID, p.Role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "profile": p})
	}
}

// GET /profile
func GetProfileHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		var (
			p       Profile
			created int64
		)
		err := db.QueryRowContext(r.Context(),
			`SELECT id,email,full_name,role,created_at FROM profiles WHERE id=$1`, sub,
		).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &created)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	}
}

// PUT /profile  { "full_name": "..." }
func UpdateProfileHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		var req struct {
			FullName string `json:"full_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.FullName) == "" {
			http.Error(w, "full_name required", http.StatusBadRequest)
			return
		}
		res, err := db.ExecContext(r.Context(),
			`UPDATE profiles SET full_name=$1 WHERE id=$2`, req.FullName, sub)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
