package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/api"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/db"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/migrations"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/fabricclient"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/services/asset-service/models"
)

type Service struct {
	fabric *fabricclient.Client
	db     *sql.DB
}

func (s *Service) RegisterAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	// 1. Record Pending in DB
	recordID := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO assets (id, asset_type, description, status)
		VALUES ($1, $2, $3, $4)`,
		recordID, req.AssetType, req.Description, "Pending")
	if err != nil {
		log.Printf("Failed to record pending asset: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to record asset", "")
		return
	}

	// 2. Call Chaincode
	result, err := s.fabric.SubmitTransaction("RegisterAsset", req.AssetType, req.Description)
	if err != nil {
		log.Printf("Failed to register asset on chain: %v", err)
		s.db.Exec("UPDATE assets SET status = 'Failed' WHERE id = $1", recordID)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	assetID, err := strconv.ParseUint(string(result), 10, 64)
	if err != nil {
		log.Printf("Unexpected chain response %q: %v", result, err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	// 3. Update DB to Confirmed (Optimistic)
	s.db.Exec("UPDATE assets SET status = 'Confirmed', asset_id = $1 WHERE id = $2", assetID, recordID)

	api.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"asset_id": assetID, "status": "registered"})
}

func (s *Service) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.fabric.EvaluateTransaction("GetAsset", id)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "asset_not_found", "Asset not found", "")
		return
	}

	var asset models.Asset
	if err := json.Unmarshal(result, &asset); err != nil {
		log.Printf("Failed to decode asset record: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, asset)
}

func (s *Service) GetOwnerAssetsHandler(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	result, err := s.fabric.EvaluateTransaction("GetUserAssets", owner)
	if err != nil {
		log.Printf("GetUserAssets failed for %s: %v", owner, err)
		api.WriteError(w, http.StatusInternalServerError, "chain_error", err.Error(), "")
		return
	}

	var ids []uint64
	if err := json.Unmarshal(result, &ids); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	// Resolve ids to full records for the dashboard.
	assets := make([]models.Asset, 0, len(ids))
	for _, id := range ids {
		raw, err := s.fabric.EvaluateTransaction("GetAsset", strconv.FormatUint(id, 10))
		if err != nil {
			continue
		}
		var asset models.Asset
		if err := json.Unmarshal(raw, &asset); err == nil {
			assets = append(assets, asset)
		}
	}

	api.WriteSuccess(w, http.StatusOK, assets)
}

func (s *Service) DeactivateAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	_, err := s.fabric.SubmitTransaction("DeactivateAsset", id)
	if err != nil {
		log.Printf("DeactivateAsset failed for %s: %v", id, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	s.db.Exec("UPDATE assets SET status = 'Inactive' WHERE asset_id = $1", id)

	api.WriteSuccess(w, http.StatusOK, map[string]string{"asset_id": id, "status": "inactive"})
}

func (s *Service) TransferAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.TransferAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	_, err := s.fabric.SubmitTransaction("TransferAsset", id, req.NewOwner)
	if err != nil {
		log.Printf("TransferAsset failed for %s: %v", id, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	s.db.Exec("UPDATE assets SET owner = $1 WHERE asset_id = $2", req.NewOwner, id)

	api.WriteSuccess(w, http.StatusOK, map[string]string{"asset_id": id, "owner": req.NewOwner})
}

func (s *Service) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, COALESCE(asset_id, 0), COALESCE(owner, ''), asset_type, description, status, created_at, updated_at
		FROM assets ORDER BY created_at DESC LIMIT 100`)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch assets", "")
		return
	}
	defer rows.Close()

	var records []models.AssetRecord
	for rows.Next() {
		var rec models.AssetRecord
		if err := rows.Scan(&rec.ID, &rec.AssetID, &rec.Owner, &rec.AssetType, &rec.Description, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err == nil {
			records = append(records, rec)
		}
	}

	api.WriteSuccess(w, http.StatusOK, records)
}

func (s *Service) IssueCertificateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.IssueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	result, err := s.fabric.SubmitTransaction("IssueCertificate",
		strconv.FormatUint(req.AssetID, 10),
		strconv.FormatInt(req.ExpiresAt, 10),
		req.CertType)
	if err != nil {
		log.Printf("IssueCertificate failed for asset %d: %v", req.AssetID, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	certID, err := strconv.ParseUint(string(result), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	api.WriteSuccess(w, http.StatusCreated, map[string]interface{}{"cert_id": certID, "status": "issued"})
}

func (s *Service) RenewCertificateHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.RenewCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	_, err := s.fabric.SubmitTransaction("RenewCertificate", id, strconv.FormatInt(req.ExpiresAt, 10))
	if err != nil {
		log.Printf("RenewCertificate failed for %s: %v", id, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"cert_id": id, "status": "renewed"})
}

func (s *Service) RevokeCertificateHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	_, err := s.fabric.SubmitTransaction("RevokeCertificate", id)
	if err != nil {
		log.Printf("RevokeCertificate failed for %s: %v", id, err)
		api.WriteError(w, http.StatusUnprocessableEntity, "chain_error", err.Error(), "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]string{"cert_id": id, "status": "revoked"})
}

func (s *Service) GetCertificateHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.fabric.EvaluateTransaction("GetCertificate", id)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "certificate_not_found", "Certificate not found", "")
		return
	}

	var cert models.Certificate
	if err := json.Unmarshal(result, &cert); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, cert)
}

func (s *Service) GetAssetCertificatesHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.fabric.EvaluateTransaction("GetCertificatesByAsset", id)
	if err != nil {
		log.Printf("GetCertificatesByAsset failed for %s: %v", id, err)
		api.WriteError(w, http.StatusInternalServerError, "chain_error", err.Error(), "")
		return
	}

	var ids []uint64
	if err := json.Unmarshal(result, &ids); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to parse chain response", "")
		return
	}

	certs := make([]models.Certificate, 0, len(ids))
	for _, certID := range ids {
		raw, err := s.fabric.EvaluateTransaction("GetCertificate", strconv.FormatUint(certID, 10))
		if err != nil {
			continue
		}
		var cert models.Certificate
		if err := json.Unmarshal(raw, &cert); err == nil {
			certs = append(certs, cert)
		}
	}

	api.WriteSuccess(w, http.StatusOK, certs)
}

func (s *Service) CertificateValidityHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.fabric.EvaluateTransaction("IsCertificateValid", id)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, "certificate_not_found", "Certificate not found", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"cert_id": id,
		"valid":   string(result) == "true",
	})
}

func main() {
	cfg := common.LoadConfig()

	database, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := migrations.RunMigrations(database, "backend/migrations/asset"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

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
	svc := &Service{fabric: fabric, db: database}

	auth := func(h http.HandlerFunc) http.Handler {
		return common.AuthMiddleware(secret, h)
	}

	r := mux.NewRouter()

	r.Handle("/assets", auth(common.RequireRole("ASSET_CREATOR", svc.RegisterAssetHandler))).Methods("POST")
	r.Handle("/assets", auth(svc.ListAssetsHandler)).Methods("GET")
	r.Handle("/assets/{id:[0-9]+}", auth(svc.GetAssetHandler)).Methods("GET")
	r.Handle("/assets/{id:[0-9]+}/deactivate", auth(svc.DeactivateAssetHandler)).Methods("POST")
	r.Handle("/assets/{id:[0-9]+}/transfer", auth(svc.TransferAssetHandler)).Methods("POST")
	r.Handle("/assets/{id:[0-9]+}/certificates", auth(svc.GetAssetCertificatesHandler)).Methods("GET")
	r.Handle("/owners/{owner}/assets", auth(svc.GetOwnerAssetsHandler)).Methods("GET")

	r.Handle("/certificates", auth(common.RequireRole("CERTIFIER", svc.IssueCertificateHandler))).Methods("POST")
	r.Handle("/certificates/{id:[0-9]+}", auth(svc.GetCertificateHandler)).Methods("GET")
	r.Handle("/certificates/{id:[0-9]+}/renew", auth(common.RequireRole("CERTIFIER", svc.RenewCertificateHandler))).Methods("POST")
	r.Handle("/certificates/{id:[0-9]+}/revoke", auth(common.RequireRole("CERTIFIER", svc.RevokeCertificateHandler))).Methods("POST")
	r.Handle("/certificates/{id:[0-9]+}/validity", auth(svc.CertificateValidityHandler)).Methods("GET")

	log.Printf("Asset Service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
