package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/api"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/db"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/migrations"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/fabricclient"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/services/auth-service/models"
)

var validRoles = map[string]bool{
	"ADMIN":         true,
	"CERTIFIER":     true,
	"ASSET_CREATOR": true,
	"AUDITOR":       true,
	"MANUFACTURER":  true,
	"DISTRIBUTOR":   true,
}

type Service struct {
	db     *sql.DB
	fabric *fabricclient.Client
	secret []byte
}

func (s *Service) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	if req.Username == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Username and password are required", "")
		return
	}

	role := req.Role
	if role == "" {
		role = "ASSET_CREATOR"
	}
	if !validRoles[role] {
		api.WriteError(w, http.StatusBadRequest, "invalid_role", "Unknown role: "+role, "")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password", "")
		return
	}

	userID := uuid.New().String()

	_, err = s.db.Exec(`
		INSERT INTO users (id, username, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, req.Username, string(hashedPassword), role, "ACTIVE")
	if err != nil {
		log.Printf("Failed to register user: %v", err)
		api.WriteError(w, http.StatusConflict, "user_exists", "Username already exists", "")
		return
	}

	// Mirror the credential on-chain so dashboards can authenticate against
	// the ledger even when this service is down.
	if s.fabric != nil {
		if _, err := s.fabric.SubmitTransaction("SetPassword", req.Username, req.Password); err != nil {
			log.Printf("Warning: failed to mirror credential on-chain for %s: %v", req.Username, err)
		}
	}

	api.WriteSuccess(w, http.StatusCreated, map[string]string{"user_id": userID, "status": "created"})
}

func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	var user models.User
	err := s.db.QueryRow(`
		SELECT id, password_hash, role, status
		FROM users WHERE username = $1`, req.Username).
		Scan(&user.ID, &user.PasswordHash, &user.Role, &user.Status)

	if err == sql.ErrNoRows {
		api.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", "")
		return
	} else if err != nil {
		log.Printf("DB Error: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Database error", "")
		return
	}

	if user.Status != "ACTIVE" {
		api.WriteError(w, http.StatusForbidden, "account_inactive", "Account is not active", "")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		api.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", "")
		return
	}

	go func() {
		s.db.Exec("UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), user.ID)
	}()

	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &models.Claims{
		UserID:   user.ID,
		Username: req.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Issuer:    "trace-auth-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate token", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, models.TokenResponse{Token: tokenString, ExpiresAt: expirationTime.Unix()})
}

func (s *Service) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})

	if err != nil || !token.Valid {
		api.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", "")
		return
	}

	expirationTime := time.Now().Add(24 * time.Hour)
	claims.ExpiresAt = jwt.NewNumericDate(expirationTime)

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	newTokenString, err := newToken.SignedString(s.secret)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to refresh token", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, models.TokenResponse{Token: newTokenString, ExpiresAt: expirationTime.Unix()})
}

func (s *Service) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		api.WriteError(w, http.StatusUnauthorized, "missing_token", "Missing Authorization header", "")
		return
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})

	if err != nil || !token.Valid {
		api.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

// SetPasswordHandler updates the stored credential and mirrors it on-chain.
// Admin only; the admin panel uses this for password resets.
func (s *Service) SetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	if req.Username == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Username and password are required", "")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password", "")
		return
	}

	res, err := s.db.Exec("UPDATE users SET password_hash = $1 WHERE username = $2",
		string(hashedPassword), req.Username)
	if err != nil {
		log.Printf("DB Error: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Database error", "")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		api.WriteError(w, http.StatusNotFound, "user_not_found", "User not found", "")
		return
	}

	if s.fabric != nil {
		if _, err := s.fabric.SubmitTransaction("SetPassword", req.Username, req.Password); err != nil {
			log.Printf("Warning: failed to mirror credential on-chain for %s: %v", req.Username, err)
		}
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"status": "updated"})
}

func main() {
	cfg := common.LoadConfig()

	database, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := migrations.RunMigrations(database, "backend/migrations/auth"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	fabric, err := fabricclient.NewClient(cfg.FabricConfig, cfg.Channel, cfg.Chaincode, cfg.MSP, cfg.CertPath, cfg.KeyPath)
	if err != nil {
		// The service can still issue tokens from its own store; on-chain
		// mirroring resumes on restart.
		log.Printf("Warning: fabric gateway unavailable: %v", err)
	} else {
		defer fabric.Close()
	}

	secret := []byte(cfg.JWTSecret)
	svc := &Service{db: database, fabric: fabric, secret: secret}

	r := mux.NewRouter()

	r.HandleFunc("/auth/register", svc.RegisterHandler).Methods("POST")
	r.HandleFunc("/auth/login", svc.LoginHandler).Methods("POST")
	r.HandleFunc("/auth/refresh", svc.RefreshHandler).Methods("POST")
	r.HandleFunc("/auth/verify", svc.VerifyHandler).Methods("GET")
	r.Handle("/auth/password",
		common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.SetPasswordHandler))).Methods("PUT")

	log.Printf("Auth Service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
