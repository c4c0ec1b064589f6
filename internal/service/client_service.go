package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/catalog"
	"smplanner/marketing-app/internal/domain"
	"smplanner/marketing-app/internal/repository"
	"smplanner/marketing-app/internal/storage"
)

// --- Error Definitions ---
var (
	// ErrValidation wraps any rejected input: a missing required field, an
	// unknown enum value, or a negative amount.
	ErrValidation = errors.New("validation failed")

	ErrClientNotFound = errors.New("client not found")

	// ErrNoMarketingPlan and ErrNoExternalOption report "not applicable"
	// conditions: the operation targeted a related object the client simply
	// does not have. Callers distinguish these from real failures.
	ErrNoMarketingPlan  = errors.New("client has no marketing plan")
	ErrNoExternalOption = errors.New("marketing plan has no external option")

	// ErrOptionNotInPlan is returned when a toggle targets an option that is
	// not a member of the client's current plan (a stale or detached option).
	ErrOptionNotInPlan = errors.New("option is not part of the client's marketing plan")

	ErrUploadURLError   = errors.New("failed to generate upload URL")
	ErrDownloadURLError = errors.New("failed to generate download URL")
	ErrNoPhoto          = errors.New("client has no photo")
)

// Observer is notified after every successful mutation of the client
// collection. No payload: observers re-read whatever they display.
type Observer interface {
	ClientsChanged()
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func()

func (f ObserverFunc) ClientsChanged() { f() }

// ReplicaPusher mirrors local mutations into the optional cloud replica.
// Pushing is best effort: a failed push is logged and the local mutation
// stands.
type ReplicaPusher interface {
	PushClient(ctx context.Context, client *domain.Client) error
	DeleteClient(ctx context.Context, client *domain.Client) error
}

// ClientFields carries the caller-editable fields of a client record.
type ClientFields struct {
	FirstName     string
	LastName      string
	PracticeName  string
	Phone         string
	Email         string
	StreetAddress string
	City          string
	State         string
	Zip           string
	Notes         string
	PracticeType  domain.PracticeType
	// Only honored on create; zero means "now".
	InitialContact time.Time
}

// PhotoUploadResponse returns the presigned URL and the object key the
// caller must report back on confirm.
type PhotoUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// ClientService is the registry owning the client collection. Every
// mutation refreshes the client's last-modification timestamp, persists
// before returning, pushes to the replica (best effort) and notifies the
// registered observers.
type ClientService interface {
	AddObserver(o Observer)

	CreateClient(ctx context.Context, consultantID primitive.ObjectID, fields ClientFields) (*domain.Client, error)
	GetClient(ctx context.Context, consultantID, clientID primitive.ObjectID) (*domain.Client, error)
	UpdateClient(ctx context.Context, consultantID, clientID primitive.ObjectID, fields ClientFields) (*domain.Client, error)
	RemoveClient(ctx context.Context, consultantID, clientID primitive.ObjectID) error
	ListClients(ctx context.Context, consultantID primitive.ObjectID) ([]domain.Client, error)

	BuildMarketingPlan(ctx context.Context, consultantID, clientID primitive.ObjectID, practiceType domain.PracticeType) (*domain.Client, error)
	ToggleOption(ctx context.Context, consultantID, clientID, optionID primitive.ObjectID) (*domain.Client, error)
	SetExternalFocus(ctx context.Context, consultantID, clientID primitive.ObjectID, focus domain.ExternalFocus) (*domain.Client, error)
	SetExternalBudget(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error)
	SetExternalActive(ctx context.Context, consultantID, clientID primitive.ObjectID, active bool) (*domain.Client, error)

	SetMonthlyBudget(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error)
	SetCurrentProduction(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error)
	SetProductionGoal(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error)

	RequestPhotoUploadURL(ctx context.Context, consultantID, clientID primitive.ObjectID, contentType string) (*PhotoUploadResponse, error)
	ConfirmPhotoUpload(ctx context.Context, consultantID, clientID primitive.ObjectID, objectKey string) (*domain.Client, error)
	GetPhotoDownloadURL(ctx context.Context, consultantID, clientID primitive.ObjectID) (string, error)
}

// clientService implements the ClientService interface.
type clientService struct {
	clients     repository.ClientRepository
	fileStorage storage.FileStorage
	replica     ReplicaPusher // May be nil: replica sync is optional
	catalog     *catalog.Catalog
	logger      *zap.Logger

	mu        sync.RWMutex
	observers []Observer
}

// NewClientService creates a new instance of clientService. replica may be
// nil when cloud sync is disabled.
func NewClientService(
	clients repository.ClientRepository,
	fileStorage storage.FileStorage,
	replica ReplicaPusher,
	cat *catalog.Catalog,
	logger *zap.Logger,
) ClientService {
	if cat == nil {
		cat = catalog.Default()
	}
	return &clientService{
		clients:     clients,
		fileStorage: fileStorage,
		replica:     replica,
		catalog:     cat,
		logger:      logger,
	}
}

// AddObserver registers an observer for collection-changed notifications.
func (s *clientService) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *clientService) notifyObservers() {
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()
	for _, o := range observers {
		o.ClientsChanged()
	}
}

// === CRUD ===

func (s *clientService) CreateClient(ctx context.Context, consultantID primitive.ObjectID, fields ClientFields) (*domain.Client, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	initialContact := fields.InitialContact
	if initialContact.IsZero() {
		initialContact = time.Now().UTC()
	}

	client := &domain.Client{
		RecordName:        uuid.NewString(),
		ConsultantID:      consultantID,
		FirstName:         fields.FirstName,
		LastName:          fields.LastName,
		PracticeName:      fields.PracticeName,
		PracticeType:      fields.PracticeType,
		Phone:             fields.Phone,
		Email:             fields.Email,
		StreetAddress:     fields.StreetAddress,
		City:              fields.City,
		State:             fields.State,
		Zip:               fields.Zip,
		Notes:             fields.Notes,
		MonthlyBudget:     decimal.Zero,
		CurrentProduction: decimal.Zero,
		ProductionGoal:    decimal.Zero,
		InitialContact:    initialContact,
	}
	client.Touch()

	if _, err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}

	s.pushReplica(ctx, client)
	s.notifyObservers()
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, consultantID, clientID primitive.ObjectID) (*domain.Client, error) {
	return s.loadOwned(ctx, consultantID, clientID)
}

func (s *clientService) UpdateClient(ctx context.Context, consultantID, clientID primitive.ObjectID, fields ClientFields) (*domain.Client, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}

	client.FirstName = fields.FirstName
	client.LastName = fields.LastName
	client.PracticeName = fields.PracticeName
	client.PracticeType = fields.PracticeType
	client.Phone = fields.Phone
	client.Email = fields.Email
	client.StreetAddress = fields.StreetAddress
	client.City = fields.City
	client.State = fields.State
	client.Zip = fields.Zip
	client.Notes = fields.Notes

	return s.saveAndNotify(ctx, client)
}

func (s *clientService) RemoveClient(ctx context.Context, consultantID, clientID primitive.ObjectID) error {
	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return err
	}

	if err := s.clients.Delete(ctx, client.ID); err != nil {
		return err
	}

	// The photo outlives nothing: clean it up with the record.
	if client.PhotoObjectKey != nil && s.fileStorage != nil {
		if err := s.fileStorage.DeleteObject(ctx, *client.PhotoObjectKey); err != nil {
			s.logger.Warn("failed to delete client photo", zap.String("key", *client.PhotoObjectKey), zap.Error(err))
		}
	}

	if s.replica != nil {
		if err := s.replica.DeleteClient(ctx, client); err != nil {
			s.logger.Warn("replica delete failed", zap.String("recordName", client.RecordName), zap.Error(err))
		}
	}

	s.notifyObservers()
	return nil
}

// ListClients re-reads the store on every call; the registry keeps no
// in-memory copy of the collection. Results come back sorted by last name.
func (s *clientService) ListClients(ctx context.Context, consultantID primitive.ObjectID) ([]domain.Client, error) {
	return s.clients.ListByConsultant(ctx, consultantID)
}

// === Marketing plan ===

// BuildMarketingPlan expands the plan template for the practice type and
// attaches it to the client, replacing any existing plan. The client's
// practice type is updated to match.
func (s *clientService) BuildMarketingPlan(ctx context.Context, consultantID, clientID primitive.ObjectID, practiceType domain.PracticeType) (*domain.Client, error) {
	if !domain.ValidPracticeType(practiceType) {
		return nil, fmt.Errorf("%w: unknown practice type %q", ErrValidation, practiceType)
	}

	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}

	client.PracticeType = practiceType
	client.MarketingPlan = domain.NewMarketingPlan(practiceType, s.catalog)

	return s.saveAndNotify(ctx, client)
}

// ToggleOption flips the active flag of a member option. Toggling an option
// that is not part of the client's current plan changes nothing and returns
// ErrOptionNotInPlan.
func (s *clientService) ToggleOption(ctx context.Context, consultantID, clientID, optionID primitive.ObjectID) (*domain.Client, error) {
	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}
	if client.MarketingPlan == nil {
		return nil, ErrNoMarketingPlan
	}

	opt := client.MarketingPlan.OptionByID(optionID)
	if opt == nil {
		return nil, ErrOptionNotInPlan
	}
	opt.Active = !opt.Active

	return s.saveAndNotify(ctx, client)
}

func (s *clientService) SetExternalFocus(ctx context.Context, consultantID, clientID primitive.ObjectID, focus domain.ExternalFocus) (*domain.Client, error) {
	if !domain.ValidExternalFocus(focus) {
		return nil, fmt.Errorf("%w: unknown external focus %q", ErrValidation, focus)
	}
	return s.mutateExternal(ctx, consultantID, clientID, func(opt *domain.MarketingOption) {
		opt.Name = string(focus)
	})
}

func (s *clientService) SetExternalBudget(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: external budget must not be negative", ErrValidation)
	}
	return s.mutateExternal(ctx, consultantID, clientID, func(opt *domain.MarketingOption) {
		opt.Price = amount
	})
}

func (s *clientService) SetExternalActive(ctx context.Context, consultantID, clientID primitive.ObjectID, active bool) (*domain.Client, error) {
	return s.mutateExternal(ctx, consultantID, clientID, func(opt *domain.MarketingOption) {
		opt.Active = active
	})
}

// mutateExternal resolves the plan's designated external option and applies
// mutate to it. The plan keeps a direct reference to that option, so there
// is no category scan and "at most one external selection" holds by
// construction.
func (s *clientService) mutateExternal(ctx context.Context, consultantID, clientID primitive.ObjectID, mutate func(*domain.MarketingOption)) (*domain.Client, error) {
	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}
	if client.MarketingPlan == nil {
		return nil, ErrNoMarketingPlan
	}

	opt := client.MarketingPlan.ExternalOption()
	if opt == nil {
		return nil, ErrNoExternalOption
	}
	mutate(opt)

	return s.saveAndNotify(ctx, client)
}

// === Finances ===

func (s *clientService) SetMonthlyBudget(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error) {
	return s.setAmount(ctx, consultantID, clientID, amount, func(c *domain.Client) { c.MonthlyBudget = amount })
}

func (s *clientService) SetCurrentProduction(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error) {
	return s.setAmount(ctx, consultantID, clientID, amount, func(c *domain.Client) { c.CurrentProduction = amount })
}

func (s *clientService) SetProductionGoal(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal) (*domain.Client, error) {
	return s.setAmount(ctx, consultantID, clientID, amount, func(c *domain.Client) { c.ProductionGoal = amount })
}

func (s *clientService) setAmount(ctx context.Context, consultantID, clientID primitive.ObjectID, amount decimal.Decimal, set func(*domain.Client)) (*domain.Client, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}
	set(client)

	return s.saveAndNotify(ctx, client)
}

// === Photo ===

// RequestPhotoUploadURL generates a presigned URL for uploading the client's
// photo directly to object storage.
func (s *clientService) RequestPhotoUploadURL(ctx context.Context, consultantID, clientID primitive.ObjectID, contentType string) (*PhotoUploadResponse, error) {
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, fmt.Errorf("%w: content type must be an image type", ErrValidation)
	}

	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}

	fileExtension := ""
	if parts := strings.Split(contentType, "/"); len(parts) == 2 {
		fileExtension = parts[1]
	}
	objectKey := path.Join("photos", client.ID.Hex(), fmt.Sprintf("%s.%s", uuid.NewString(), fileExtension))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &PhotoUploadResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmPhotoUpload records the uploaded object key on the client. Called
// after the caller has PUT the photo using the presigned URL.
func (s *clientService) ConfirmPhotoUpload(ctx context.Context, consultantID, clientID primitive.ObjectID, objectKey string) (*domain.Client, error) {
	if objectKey == "" {
		return nil, fmt.Errorf("%w: object key is required", ErrValidation)
	}

	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return nil, err
	}

	oldKey := client.PhotoObjectKey
	client.PhotoObjectKey = &objectKey

	client, err = s.saveAndNotify(ctx, client)
	if err != nil {
		return nil, err
	}

	if oldKey != nil && *oldKey != objectKey {
		if err := s.fileStorage.DeleteObject(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete replaced photo", zap.String("key", *oldKey), zap.Error(err))
		}
	}
	return client, nil
}

func (s *clientService) GetPhotoDownloadURL(ctx context.Context, consultantID, clientID primitive.ObjectID) (string, error) {
	client, err := s.loadOwned(ctx, consultantID, clientID)
	if err != nil {
		return "", err
	}
	if client.PhotoObjectKey == nil {
		return "", ErrNoPhoto
	}

	downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, *client.PhotoObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", ErrDownloadURLError
	}
	return downloadURL, nil
}

// === Helpers ===

// loadOwned fetches a client and verifies it belongs to the consultant.
// Foreign clients are indistinguishable from absent ones.
func (s *clientService) loadOwned(ctx context.Context, consultantID, clientID primitive.ObjectID) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.ConsultantID != consultantID {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// saveAndNotify refreshes the timestamp, persists, pushes to the replica
// and fans out the change notification. Persistence failures are returned
// to the caller; only the replica push is best effort.
func (s *clientService) saveAndNotify(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	client.Touch()
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	s.pushReplica(ctx, client)
	s.notifyObservers()
	return client, nil
}

func (s *clientService) pushReplica(ctx context.Context, client *domain.Client) {
	if s.replica == nil {
		return
	}
	if err := s.replica.PushClient(ctx, client); err != nil {
		s.logger.Warn("replica push failed", zap.String("recordName", client.RecordName), zap.Error(err))
	}
}

func validateFields(fields ClientFields) error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", fields.FirstName},
		{"lastName", fields.LastName},
		{"practiceName", fields.PracticeName},
		{"phone", fields.Phone},
		{"email", fields.Email},
		{"streetAddress", fields.StreetAddress},
		{"zip", fields.Zip},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	if fields.PracticeType != "" && !domain.ValidPracticeType(fields.PracticeType) {
		return fmt.Errorf("%w: unknown practice type %q", ErrValidation, fields.PracticeType)
	}
	return nil
}
