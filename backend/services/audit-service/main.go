package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/api"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/db"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/common/migrations"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/pkg/fabricclient"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/services/audit-service/models"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/services/audit-service/queues"
)

// Audit Service tails chaincode events into an append-only Postgres log and
// republishes them on RabbitMQ for downstream consumers (alerting, BI).

var chaincodeEvents = []string{
	"AssetRegistered",
	"AssetDeactivated",
	"CertificateIssued",
	"CertificateRenewed",
	"CertificateRevoked",
	"UserWalletLinked",
}

type Service struct {
	db        *sql.DB
	fabric    *fabricclient.Client
	publisher *queues.RabbitPublisher
}

func (s *Service) listen(eventName string) {
	events, cancel, err := s.fabric.RegisterChaincodeEventListener(eventName)
	if err != nil {
		log.Printf("Failed to register listener for %s: %v", eventName, err)
		return
	}
	defer cancel()

	for ev := range events {
		if _, err := s.db.Exec(`
			INSERT INTO audit_events (id, event_name, tx_id, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tx_id, event_name) DO NOTHING`,
			uuid.New().String(), ev.EventName, ev.TxID, ev.Payload); err != nil {
			log.Printf("Failed to store event %s (tx %s): %v", ev.EventName, ev.TxID, err)
			continue
		}

		if s.publisher != nil {
			if err := s.publisher.PublishEvent(ev.EventName, ev.Payload); err != nil {
				log.Printf("Failed to republish event %s: %v", ev.EventName, err)
			}
		}
	}
}

func (s *Service) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, event_name, tx_id, payload, created_at
		FROM audit_events`
	args := []interface{}{}

	if name := r.URL.Query().Get("event"); name != "" {
		query += " WHERE event_name = $1"
		args = append(args, name)
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Printf("DB Error: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch events", "")
		return
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var ev models.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.EventName, &ev.TxID, &ev.Payload, &ev.CreatedAt); err == nil {
			events = append(events, ev)
		}
	}

	api.WriteSuccess(w, http.StatusOK, events)
}

func (s *Service) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary := models.Summary{EventsByName: map[string]int64{}}

	rows, err := s.db.Query(`
		SELECT event_name, COUNT(*) FROM audit_events GROUP BY event_name`)
	if err != nil {
		log.Printf("DB Error: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to build summary", "")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			continue
		}
		summary.EventsByName[name] = count
		summary.TotalEvents += count
	}

	summary.AssetsRegistered = summary.EventsByName["AssetRegistered"]
	summary.CertsIssued = summary.EventsByName["CertificateIssued"]
	summary.CertsRevoked = summary.EventsByName["CertificateRevoked"]
	summary.WalletsLinked = summary.EventsByName["UserWalletLinked"]

	if err := s.db.QueryRow(`SELECT MIN(created_at), MAX(created_at) FROM audit_events`).
		Scan(&summary.FirstEventAt, &summary.LastEventAt); err != nil {
		log.Printf("Failed to read event time range: %v", err)
	}

	api.WriteSuccess(w, http.StatusOK, summary)
}

func main() {
	cfg := common.LoadConfig()

	database, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := migrations.RunMigrations(database, "backend/migrations/audit"); err != nil {
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

	publisher, err := queues.NewRabbitPublisher(cfg.AMQPURL, "trace.events", "trace.audit", "trace.event.#")
	if err != nil {
		// The Postgres log still fills; queue consumers catch up on restart.
		log.Printf("Warning: RabbitMQ unavailable: %v", err)
	} else {
		defer publisher.Close()
	}

	svc := &Service{db: database, fabric: fabric, publisher: publisher}

	for _, name := range chaincodeEvents {
		go svc.listen(name)
	}

	secret := []byte(cfg.JWTSecret)

	r := mux.NewRouter()
	r.Handle("/audit/events", common.AuthMiddleware(secret, common.RequireRole("AUDITOR", svc.GetEventsHandler))).Methods("GET")
	r.Handle("/reports/summary", common.AuthMiddleware(secret, common.RequireRole("AUDITOR", svc.SummaryHandler))).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Audit OK"))
	}).Methods("GET")

	log.Printf("Audit Service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
