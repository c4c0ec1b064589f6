// Package replica mirrors client and marketing-plan records into an
// optional cloud record store, and pulls them back. Records are opaque
// payloads keyed by a stable record name; a plan record carries a reference
// to its client's record name, never the other way around.
package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/domain"
	"smplanner/marketing-app/internal/repository"
)

// Record types stored in the replica.
const (
	RecordTypeClient = "Client"
	RecordTypePlan   = "MarketingPlan"
)

// ErrRecordNotFound is returned by a RecordStore when no record exists
// under the requested name.
var ErrRecordNotFound = errors.New("replica record not found")

// Record is one opaque replica entry.
type Record struct {
	Name    string // Stable record name
	Type    string // RecordTypeClient or RecordTypePlan
	Payload []byte // JSON-encoded body
	// ClientRef is set on plan records only: the record name of the owning
	// client.
	ClientRef string
}

// RecordStore is the opaque durable record store behind the replica.
type RecordStore interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, name string) (Record, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, recordType string) ([]Record, error)
}

// PullResult summarizes one pull pass.
type PullResult struct {
	ClientsApplied int `json:"clientsApplied"`
	PlansApplied   int `json:"plansApplied"`
	Rejected       int `json:"rejected"`
}

// Syncer pushes local mutations into the record store and applies remote
// records back onto the local repository.
type Syncer struct {
	store   RecordStore
	clients repository.ClientRepository
	logger  *zap.Logger
}

// NewSyncer creates a Syncer over the given record store.
func NewSyncer(store RecordStore, clients repository.ClientRepository, logger *zap.Logger) *Syncer {
	return &Syncer{store: store, clients: clients, logger: logger}
}

// PushClient writes the client's record, and its plan record when a plan is
// attached. The client record never embeds the plan; the plan is its own
// record pointing back at the client.
func (s *Syncer) PushClient(ctx context.Context, client *domain.Client) error {
	clientRec, err := clientRecord(client)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, clientRec); err != nil {
		return err
	}

	if client.MarketingPlan == nil {
		return nil
	}
	planRec, err := planRecord(client)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, planRec)
}

// DeleteClient removes the client's record and its plan record from the
// replica.
func (s *Syncer) DeleteClient(ctx context.Context, client *domain.Client) error {
	if client.MarketingPlan != nil {
		if err := s.store.Delete(ctx, client.MarketingPlan.RecordName); err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}
	}
	err := s.store.Delete(ctx, client.RecordName)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	return err
}

// Pull applies the replica's records for one consultant onto the local
// store. Client records are applied first so plan references can resolve.
// A plan record whose client reference does not resolve is rejected
// (counted and logged), never orphaned.
func (s *Syncer) Pull(ctx context.Context, consultantID primitive.ObjectID) (PullResult, error) {
	var result PullResult

	clientRecs, err := s.store.List(ctx, RecordTypeClient)
	if err != nil {
		return result, err
	}
	for _, rec := range clientRecs {
		applied, err := s.applyClientRecord(ctx, consultantID, rec)
		if err != nil {
			return result, err
		}
		if applied {
			result.ClientsApplied++
		}
	}

	planRecs, err := s.store.List(ctx, RecordTypePlan)
	if err != nil {
		return result, err
	}
	for _, rec := range planRecs {
		applied, rejected, err := s.applyPlanRecord(ctx, consultantID, rec)
		if err != nil {
			return result, err
		}
		if applied {
			result.PlansApplied++
		}
		if rejected {
			result.Rejected++
		}
	}

	return result, nil
}

// applyClientRecord upserts one pulled client record. Records owned by a
// different consultant are skipped without error.
func (s *Syncer) applyClientRecord(ctx context.Context, consultantID primitive.ObjectID, rec Record) (bool, error) {
	var remote domain.Client
	if err := json.Unmarshal(rec.Payload, &remote); err != nil {
		s.logger.Warn("rejecting undecodable client record", zap.String("recordName", rec.Name), zap.Error(err))
		return false, nil
	}
	if remote.ConsultantID != consultantID {
		return false, nil
	}

	local, err := s.clients.GetByRecordName(ctx, rec.Name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		_, err = s.clients.Create(ctx, &remote)
		return err == nil, err
	case err != nil:
		return false, err
	}

	// Keep the local identity and plan; the record carries neither.
	remote.ID = local.ID
	remote.MarketingPlan = local.MarketingPlan
	if err := s.clients.Update(ctx, &remote); err != nil {
		return false, err
	}
	return true, nil
}

// applyPlanRecord attaches one pulled plan record to its client. The plan
// is rejected when its client reference is missing or does not resolve;
// records belonging to another consultant are skipped silently.
func (s *Syncer) applyPlanRecord(ctx context.Context, consultantID primitive.ObjectID, rec Record) (applied, rejected bool, err error) {
	if rec.ClientRef == "" {
		s.logger.Warn("rejecting plan record without client reference", zap.String("recordName", rec.Name))
		return false, true, nil
	}

	client, err := s.clients.GetByRecordName(ctx, rec.ClientRef)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("rejecting plan record with unresolvable client reference",
			zap.String("recordName", rec.Name),
			zap.String("clientRef", rec.ClientRef),
		)
		return false, true, nil
	}
	if err != nil {
		return false, false, err
	}
	if client.ConsultantID != consultantID {
		return false, false, nil
	}

	var plan domain.MarketingPlan
	if err := json.Unmarshal(rec.Payload, &plan); err != nil {
		s.logger.Warn("rejecting undecodable plan record", zap.String("recordName", rec.Name), zap.Error(err))
		return false, true, nil
	}
	plan.EnsureExternalRef()

	client.MarketingPlan = &plan
	client.Touch()
	if err := s.clients.Update(ctx, client); err != nil {
		return false, false, err
	}
	return true, false, nil
}

func clientRecord(client *domain.Client) (Record, error) {
	// The plan is replicated as its own record.
	stripped := *client
	stripped.MarketingPlan = nil

	payload, err := json.Marshal(&stripped)
	if err != nil {
		return Record{}, fmt.Errorf("encode client record: %w", err)
	}
	return Record{Name: client.RecordName, Type: RecordTypeClient, Payload: payload}, nil
}

func planRecord(client *domain.Client) (Record, error) {
	payload, err := json.Marshal(client.MarketingPlan)
	if err != nil {
		return Record{}, fmt.Errorf("encode plan record: %w", err)
	}
	return Record{
		Name:      client.MarketingPlan.RecordName,
		Type:      RecordTypePlan,
		Payload:   payload,
		ClientRef: client.RecordName,
	}, nil
}
