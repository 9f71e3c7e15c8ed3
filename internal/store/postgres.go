// Package store persists generated recommendations against a patient id.
// The engine never calls it; HTTP handlers do, after a plan is produced.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/fisioplan/internal/recommend"
)

const schema = `
CREATE TABLE IF NOT EXISTS treatment_recommendations (
	id                UUID PRIMARY KEY,
	patient_id        TEXT NOT NULL,
	condition         TEXT NOT NULL,
	severity          TEXT NOT NULL,
	confidence_score  INTEGER NOT NULL,
	knowledge_version TEXT NOT NULL,
	profile           JSONB NOT NULL,
	recommendation    JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS treatment_recommendations_patient_idx
	ON treatment_recommendations (patient_id, created_at DESC);
`

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var ErrPatientIDRequired = errors.New("patient id is required")

// Record is one stored recommendation.
type Record struct {
	ID             uuid.UUID                         `json:"id"`
	PatientID      string                            `json:"patientId"`
	Profile        recommend.PatientProfile          `json:"profile"`
	Recommendation recommend.TreatmentRecommendation `json:"recommendation"`
	CreatedAt      time.Time                         `json:"createdAt"`
}

type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate creates the table and index if missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// Save stores rec for patientID and returns the stored record.
func (s *Postgres) Save(ctx context.Context, patientID string, profile recommend.PatientProfile, rec recommend.TreatmentRecommendation) (Record, error) {
	if patientID == "" {
		return Record{}, ErrPatientIDRequired
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return Record{}, fmt.Errorf("encode profile: %w", err)
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode recommendation: %w", err)
	}

	out := Record{
		ID:             uuid.New(),
		PatientID:      patientID,
		Profile:        profile,
		Recommendation: rec,
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO treatment_recommendations
			(id, patient_id, condition, severity, confidence_score, knowledge_version, profile, recommendation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		out.ID, patientID, profile.Condition, string(profile.Severity), rec.ConfidenceScore,
		rec.KnowledgeVersion, profileJSON, recJSON,
	).Scan(&out.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("insert recommendation: %w", err)
	}
	return out, nil
}

// ListByPatient returns the newest records first. limit <= 0 uses the default.
func (s *Postgres) ListByPatient(ctx context.Context, patientID string, limit int) ([]Record, error) {
	if patientID == "" {
		return nil, ErrPatientIDRequired
	}
	limit = normalizeLimit(limit)

	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, profile, recommendation, created_at
		FROM treatment_recommendations
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan recommendations: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.CollectableRow) (Record, error) {
	var (
		r           Record
		profileJSON []byte
		recJSON     []byte
	)
	if err := row.Scan(&r.ID, &r.PatientID, &profileJSON, &recJSON, &r.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(profileJSON, &r.Profile); err != nil {
		return Record{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal(recJSON, &r.Recommendation); err != nil {
		return Record{}, fmt.Errorf("decode recommendation: %w", err)
	}
	return r, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
