package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/api"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/fabricclient"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/services/registry-service/models"
)

// Registry Service is a thin HTTP facade over the on-chain user and wallet
// registry. It keeps no local state; the ledger is the source of truth.
type Service struct {
	fabric *fabricclient.Client
}

func (s *Service) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	_, err := s.fabric.SubmitTransaction("RegisterUser", req.Username, req.Role)
	if err != nil {
		log.Printf("RegisterUser failed for %s: %v", req.Username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusCreated, map[string]string{"username": req.Username, "status": "registered"})
}

func (s *Service) LinkWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LinkWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	if req.Role == "" {
		req.Role = "ASSET_CREATOR"
	}

	_, err := s.fabric.SubmitTransaction("LinkWalletToUser", req.Username, req.Role)
	if err != nil {
		log.Printf("LinkWalletToUser failed for %s: %v", req.Username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"username": req.Username, "status": "linked"})
}

func (s *Service) UnlinkWalletHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	_, err := s.fabric.SubmitTransaction("UnlinkWallet", username)
	if err != nil {
		log.Printf("UnlinkWallet failed for %s: %v", username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"username": username, "status": "unlinked"})
}

func (s *Service) AdminUnlinkWalletHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	_, err := s.fabric.SubmitTransaction("AdminUnlinkWallet", username)
	if err != nil {
		log.Printf("AdminUnlinkWallet failed for %s: %v", username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"username": username, "status": "unlinked"})
}

func (s *Service) AssignRoleHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var req models.AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	_, err := s.fabric.SubmitTransaction("AssignRole", username, req.Role)
	if err != nil {
		log.Printf("AssignRole failed for %s: %v", username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"username": username, "role": req.Role})
}

func (s *Service) DeactivateUserHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	_, err := s.fabric.SubmitTransaction("DeactivateUser", username)
	if err != nil {
		log.Printf("DeactivateUser failed for %s: %v", username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"username": username, "status": "inactive"})
}

func (s *Service) ReactivateUserHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	_, err := s.fabric.SubmitTransaction("ReactivateUser", username)
	if err != nil {
		log.Printf("ReactivateUser failed for %s: %v", username, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"username": username, "status": "active"})
}

func (s *Service) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	result, err := s.fabric.EvaluateTransaction("GetUserByUsername", username)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "user_not_found", "User not found", "")
		return
	}

	var user models.User
	if err := json.Unmarshal(result, &user); err != nil {
		log.Printf("Failed to decode user record: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, user)
}

func (s *Service) GetUserWalletsHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	result, err := s.fabric.EvaluateTransaction("GetAllWallets", username)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "user_not_found", "User not found", "")
		return
	}

	var addresses []string
	if err := json.Unmarshal(result, &addresses); err != nil {
		log.Printf("Failed to decode wallet list: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	// Resolve each address to its full binding record.
	wallets := make([]models.WalletInfo, 0, len(addresses))
	for _, addr := range addresses {
		raw, err := s.fabric.EvaluateTransaction("GetWalletInfo", addr)
		if err != nil {
			continue
		}
		var info models.WalletInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			wallets = append(wallets, info)
		}
	}

	api.WriteSuccess(w, http.StatusOK, wallets)
}

func (s *Service) GetWalletInfoHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	result, err := s.fabric.EvaluateTransaction("GetWalletInfo", address)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "wallet_not_found", "Wallet not found", "")
		return
	}

	var info models.WalletInfo
	if err := json.Unmarshal(result, &info); err != nil {
		log.Printf("Failed to decode wallet record: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, info)
}

func (s *Service) GetUsernameByWalletHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	result, err := s.fabric.EvaluateTransaction("GetUsernameByWallet", address)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "wallet_not_linked", "Wallet is not linked to any user", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"address": address, "username": string(result)})
}

func (s *Service) GrantRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GrantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	_, err := s.fabric.SubmitTransaction("GrantRole", req.Role, req.Address)
	if err != nil {
		log.Printf("GrantRole failed for %s: %v", req.Address, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"address": req.Address, "role": req.Role, "status": "granted"})
}

func (s *Service) RevokeRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GrantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	_, err := s.fabric.SubmitTransaction("RevokeRole", req.Role, req.Address)
	if err != nil {
		log.Printf("RevokeRole failed for %s: %v", req.Address, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"address": req.Address, "role": req.Role, "status": "revoked"})
}

func main() {
	cfg := common.LoadConfig()

	fabric, err := fabricclient.NewClient(
		cfg.FabricConfig,
		cfg.Channel,
		cfg.Chaincode,
		cfg.MSP,
		cfg.CertPath,
		cfg.KeyPath,
	)
	if err != nil {
		log.Fatalf("Failed to connect to Fabric gateway: %v", err)
	}
	defer fabric.Close()

	secret := []byte(cfg.JWTSecret)
	svc := &Service{fabric: fabric}

	r := mux.NewRouter()

	// Reads are open to any authenticated caller.
	r.Handle("/users/{username}", common.AuthMiddleware(secret, http.HandlerFunc(svc.GetUserHandler))).Methods("GET")
	r.Handle("/users/{username}/wallets", common.AuthMiddleware(secret, http.HandlerFunc(svc.GetUserWalletsHandler))).Methods("GET")
	r.Handle("/wallets/{address}", common.AuthMiddleware(secret, http.HandlerFunc(svc.GetWalletInfoHandler))).Methods("GET")
	r.Handle("/wallets/{address}/username", common.AuthMiddleware(secret, http.HandlerFunc(svc.GetUsernameByWalletHandler))).Methods("GET")

	// Wallet self-service.
	r.Handle("/wallets/link", common.AuthMiddleware(secret, http.HandlerFunc(svc.LinkWalletHandler))).Methods("POST")
	r.Handle("/users/{username}/unlink", common.AuthMiddleware(secret, http.HandlerFunc(svc.UnlinkWalletHandler))).Methods("POST")

	// Admin operations; the chaincode enforces the same checks on-chain.
	r.Handle("/users", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.RegisterUserHandler))).Methods("POST")
	r.Handle("/users/{username}/role", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.AssignRoleHandler))).Methods("PUT")
	r.Handle("/users/{username}/deactivate", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.DeactivateUserHandler))).Methods("POST")
	r.Handle("/users/{username}/reactivate", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.ReactivateUserHandler))).Methods("POST")
	r.Handle("/users/{username}/admin-unlink", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.AdminUnlinkWalletHandler))).Methods("POST")
	r.Handle("/roles/grant", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.GrantRoleHandler))).Methods("POST")
	r.Handle("/roles/revoke", common.AuthMiddleware(secret, common.RequireRole("ADMIN", svc.RevokeRoleHandler))).Methods("POST")

	log.Printf("Registry Service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
