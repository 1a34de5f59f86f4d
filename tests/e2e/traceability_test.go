package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// Config for E2E tests - assumes services are running locally
const (
	AuthServiceURL  = "http://localhost:8081"
	AssetServiceURL = "http://localhost:8083"
)

// TestTraceabilityFlow walks an asset from registration through
// certification against a live stack (Fabric network + services).
func TestTraceabilityFlow(t *testing.T) {
	if os.Getenv("E2E") == "" {
		t.Skip("set E2E=1 to run against a live stack")
	}

	// 1. Register a creator account and log in
	username := fmt.Sprintf("plant-operator-%d", time.Now().Unix())
	register(t, username, "s3cret", "ASSET_CREATOR")
	token := login(t, username, "s3cret")

	// 2. Register an asset
	assetID := registerAsset(t, token, "TURBINE", "Gas turbine, unit 7")
	if assetID == 0 {
		t.Fatal("asset registration returned no id")
	}

	// 3. Issue a certificate (needs a CERTIFIER account)
	certUser := fmt.Sprintf("inspector-%d", time.Now().Unix())
	register(t, certUser, "s3cret", "CERTIFIER")
	certToken := login(t, certUser, "s3cret")

	expires := time.Now().Add(365 * 24 * time.Hour).Unix()
	issueCertificate(t, certToken, assetID, expires, "ISO-9001")

	// 4. Verify the certificate shows up on the asset
	certs := assetCertificates(t, token, assetID)
	if len(certs) == 0 {
		t.Fatal("expected at least one certificate on the asset")
	}
}

func register(t *testing.T, username, password, role string) {
	payload := map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(AuthServiceURL+"/auth/register", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("Failed to register %s: %v", username, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Register %s failed with status: %d", username, resp.StatusCode)
	}
}

func login(t *testing.T, username, password string) string {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(AuthServiceURL+"/auth/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("Failed to log in as %s: %v", username, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login %s failed with status: %d", username, resp.StatusCode)
	}

	var tok struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&tok)
	return tok.Token
}

func registerAsset(t *testing.T, token, assetType, description string) uint64 {
	payload := map[string]string{
		"asset_type":  assetType,
		"description": description,
	}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", AssetServiceURL+"/assets", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to register asset: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Register asset failed with status: %d", resp.StatusCode)
	}

	var out struct {
		AssetID uint64 `json:"asset_id"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	return out.AssetID
}

func issueCertificate(t *testing.T, token string, assetID uint64, expiresAt int64, certType string) {
	payload := map[string]interface{}{
		"asset_id":   assetID,
		"expires_at": expiresAt,
		"cert_type":  certType,
	}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", AssetServiceURL+"/certificates", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to issue certificate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Issue certificate failed with status: %d", resp.StatusCode)
	}
}

func assetCertificates(t *testing.T, token string, assetID uint64) []json.RawMessage {
	url := fmt.Sprintf("%s/assets/%d/certificates", AssetServiceURL, assetID)
	req, _ := http.NewRequest("GET", url, nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to fetch certificates: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Fetch certificates failed with status: %d", resp.StatusCode)
	}

	var certs []json.RawMessage
	json.NewDecoder(resp.Body).Decode(&certs)
	return certs
}
