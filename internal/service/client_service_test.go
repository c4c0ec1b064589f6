package service

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/catalog"
	"smplanner/marketing-app/internal/domain"
	"smplanner/marketing-app/internal/repository"
)

// --- Fakes ---

type fakeClientRepo struct {
	clients map[primitive.ObjectID]*domain.Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[primitive.ObjectID]*domain.Client)}
}

func cloneClient(c *domain.Client) *domain.Client {
	cp := *c
	if c.PhotoObjectKey != nil {
		key := *c.PhotoObjectKey
		cp.PhotoObjectKey = &key
	}
	if c.MarketingPlan != nil {
		plan := *c.MarketingPlan
		plan.Options = append([]domain.MarketingOption(nil), c.MarketingPlan.Options...)
		if c.MarketingPlan.ExternalID != nil {
			id := *c.MarketingPlan.ExternalID
			plan.ExternalID = &id
		}
		cp.MarketingPlan = &plan
	}
	return &cp
}

func (r *fakeClientRepo) Create(_ context.Context, client *domain.Client) (primitive.ObjectID, error) {
	if client.ID == primitive.NilObjectID {
		client.ID = primitive.NewObjectID()
	}
	r.clients[client.ID] = cloneClient(client)
	return client.ID, nil
}

func (r *fakeClientRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneClient(c), nil
}

func (r *fakeClientRepo) GetByRecordName(_ context.Context, recordName string) (*domain.Client, error) {
	for _, c := range r.clients {
		if c.RecordName == recordName {
			return cloneClient(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeClientRepo) ListByConsultant(_ context.Context, consultantID primitive.ObjectID) ([]domain.Client, error) {
	var out []domain.Client
	for _, c := range r.clients {
		if c.ConsultantID == consultantID {
			out = append(out, *cloneClient(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

func (r *fakeClientRepo) Update(_ context.Context, client *domain.Client) error {
	if _, ok := r.clients[client.ID]; !ok {
		return repository.ErrNotFound
	}
	r.clients[client.ID] = cloneClient(client)
	return nil
}

func (r *fakeClientRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := r.clients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.clients, id)
	return nil
}

type fakeStorage struct {
	deleted []string
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://storage.example.com/upload/" + objectKey, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.example.com/download/" + objectKey, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

type fakePusher struct {
	pushes  int
	deletes int
}

func (f *fakePusher) PushClient(_ context.Context, _ *domain.Client) error {
	f.pushes++
	return nil
}

func (f *fakePusher) DeleteClient(_ context.Context, _ *domain.Client) error {
	f.deletes++
	return nil
}

// --- Helpers ---

func validFields(first, last string) ClientFields {
	return ClientFields{
		FirstName:     first,
		LastName:      last,
		PracticeName:  "You Know the Drill",
		Phone:         "801-555-0100",
		Email:         "front-desk@example.com",
		StreetAddress: "1234 Whatever Place",
		Zip:           "54321",
	}
}

type serviceEnv struct {
	svc          ClientService
	repo         *fakeClientRepo
	store        *fakeStorage
	pusher       *fakePusher
	consultantID primitive.ObjectID
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	repo := newFakeClientRepo()
	store := &fakeStorage{}
	pusher := &fakePusher{}
	svc := NewClientService(repo, store, pusher, catalog.Default(), zap.NewNop())
	return &serviceEnv{
		svc:          svc,
		repo:         repo,
		store:        store,
		pusher:       pusher,
		consultantID: primitive.NewObjectID(),
	}
}

func (e *serviceEnv) createClient(t *testing.T, first, last string) *domain.Client {
	t.Helper()
	client, err := e.svc.CreateClient(context.Background(), e.consultantID, validFields(first, last))
	require.NoError(t, err)
	return client
}

func (e *serviceEnv) buildPlan(t *testing.T, clientID primitive.ObjectID, pt domain.PracticeType) *domain.Client {
	t.Helper()
	client, err := e.svc.BuildMarketingPlan(context.Background(), e.consultantID, clientID, pt)
	require.NoError(t, err)
	return client
}

// --- Tests ---

func TestCreateClientAndListSorted(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	env.createClient(t, "Mike", "Jones")
	env.createClient(t, "Taylor", "Bills")
	env.createClient(t, "Steven", "Brown")

	clients, err := env.svc.ListClients(ctx, env.consultantID)
	require.NoError(t, err)
	require.Len(t, clients, 3)
	assert.Equal(t, "Bills", clients[0].LastName)
	assert.Equal(t, "Brown", clients[1].LastName)
	assert.Equal(t, "Jones", clients[2].LastName)

	for _, c := range clients {
		assert.NotEmpty(t, c.RecordName)
		assert.Greater(t, c.LastModified, int64(0))
	}
}

func TestCreateClientAllowsDuplicates(t *testing.T) {
	env := newServiceEnv(t)

	a := env.createClient(t, "Mike", "Jones")
	b := env.createClient(t, "Mike", "Jones")
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.RecordName, b.RecordName)

	clients, err := env.svc.ListClients(context.Background(), env.consultantID)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}

func TestCreateClientValidation(t *testing.T) {
	env := newServiceEnv(t)

	fields := validFields("Mike", "Jones")
	fields.LastName = "  "
	_, err := env.svc.CreateClient(context.Background(), env.consultantID, fields)
	assert.ErrorIs(t, err, ErrValidation)

	fields = validFields("Mike", "Jones")
	fields.PracticeType = "boutique"
	_, err = env.svc.CreateClient(context.Background(), env.consultantID, fields)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateClientOverwritesAndRefreshesTimestamp(t *testing.T) {
	env := newServiceEnv(t)
	client := env.createClient(t, "Mike", "Jones")
	before := client.LastModified

	fields := validFields("Michael", "Jones")
	fields.Notes = "prefers morning calls"
	updated, err := env.svc.UpdateClient(context.Background(), env.consultantID, client.ID, fields)
	require.NoError(t, err)

	assert.Equal(t, "Michael", updated.FirstName)
	assert.Equal(t, "prefers morning calls", updated.Notes)
	assert.GreaterOrEqual(t, updated.LastModified, before)
	assert.Equal(t, client.RecordName, updated.RecordName)
}

func TestUpdateUnknownClient(t *testing.T) {
	env := newServiceEnv(t)
	_, err := env.svc.UpdateClient(context.Background(), env.consultantID, primitive.NewObjectID(), validFields("A", "B"))
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestClientsAreScopedToConsultant(t *testing.T) {
	env := newServiceEnv(t)
	client := env.createClient(t, "Mike", "Jones")

	stranger := primitive.NewObjectID()
	_, err := env.svc.GetClient(context.Background(), stranger, client.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)

	clients, err := env.svc.ListClients(context.Background(), stranger)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestToggleOption(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")
	client = env.buildPlan(t, client.ID, domain.PracticeGeneral)

	foundation := client.MarketingPlan.OptionsForCategory(domain.CategoryFoundation, false)
	require.NotEmpty(t, foundation)
	target := foundation[0]

	updated, err := env.svc.ToggleOption(ctx, env.consultantID, client.ID, target.ID)
	require.NoError(t, err)

	// Exactly the toggled option flipped.
	for _, opt := range updated.MarketingPlan.Options {
		if opt.ID == target.ID {
			assert.True(t, opt.Active)
			continue
		}
		before := client.MarketingPlan.OptionByID(opt.ID)
		require.NotNil(t, before)
		assert.Equal(t, before.Active, opt.Active)
	}
	assert.True(t, updated.MarketingPlan.Cost().Equal(target.Price))

	// Toggling back restores the original cost.
	updated, err = env.svc.ToggleOption(ctx, env.consultantID, client.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, updated.MarketingPlan.Cost().IsZero())
}

func TestToggleDetachedOption(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")
	client = env.buildPlan(t, client.ID, domain.PracticeGeneral)
	costBefore := client.MarketingPlan.Cost()

	_, err := env.svc.ToggleOption(ctx, env.consultantID, client.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrOptionNotInPlan)

	// Nothing changed.
	reloaded, err := env.svc.GetClient(ctx, env.consultantID, client.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.MarketingPlan.Cost().Equal(costBefore))
}

func TestToggleWithoutPlan(t *testing.T) {
	env := newServiceEnv(t)
	client := env.createClient(t, "Mike", "Jones")

	_, err := env.svc.ToggleOption(context.Background(), env.consultantID, client.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNoMarketingPlan)
}

func TestExternalOperations(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")
	client = env.buildPlan(t, client.ID, domain.PracticeGeneral)

	updated, err := env.svc.SetExternalFocus(ctx, env.consultantID, client.ID, domain.FocusDigital)
	require.NoError(t, err)
	assert.Equal(t, string(domain.FocusDigital), updated.MarketingPlan.ExternalOption().Name)

	budget := decimal.RequireFromString("1250.50")
	updated, err = env.svc.SetExternalBudget(ctx, env.consultantID, client.ID, budget)
	require.NoError(t, err)
	assert.True(t, updated.MarketingPlan.ExternalOption().Price.Equal(budget))

	// Placeholder starts active, so the budget shows up in the cost.
	assert.True(t, updated.MarketingPlan.Cost().Equal(budget))

	updated, err = env.svc.SetExternalActive(ctx, env.consultantID, client.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.MarketingPlan.ExternalOption().Active)
	assert.True(t, updated.MarketingPlan.Cost().IsZero())

	updated, err = env.svc.SetExternalActive(ctx, env.consultantID, client.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.MarketingPlan.ExternalOption().Active)
}

func TestExternalOperationsRejectBadInput(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")
	env.buildPlan(t, client.ID, domain.PracticeGeneral)

	_, err := env.svc.SetExternalFocus(ctx, env.consultantID, client.ID, "billboards")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.SetExternalBudget(ctx, env.consultantID, client.ID, decimal.RequireFromString("-5"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExternalOperationsWithoutExternalOption(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")
	env.buildPlan(t, client.ID, domain.PracticeStartup)

	_, err := env.svc.SetExternalFocus(ctx, env.consultantID, client.ID, domain.FocusDigital)
	assert.ErrorIs(t, err, ErrNoExternalOption)

	// No plan at all is reported distinctly.
	bare := env.createClient(t, "Taylor", "Bills")
	_, err = env.svc.SetExternalActive(ctx, env.consultantID, bare.ID, true)
	assert.ErrorIs(t, err, ErrNoMarketingPlan)
}

func TestFinanceSetters(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")

	amount := decimal.RequireFromString("5000")
	updated, err := env.svc.SetMonthlyBudget(ctx, env.consultantID, client.ID, amount)
	require.NoError(t, err)
	assert.True(t, updated.MonthlyBudget.Equal(amount))

	updated, err = env.svc.SetCurrentProduction(ctx, env.consultantID, client.ID, decimal.RequireFromString("80000"))
	require.NoError(t, err)
	assert.True(t, updated.CurrentProduction.Equal(decimal.RequireFromString("80000")))

	updated, err = env.svc.SetProductionGoal(ctx, env.consultantID, client.ID, decimal.RequireFromString("120000"))
	require.NoError(t, err)
	assert.True(t, updated.ProductionGoal.Equal(decimal.RequireFromString("120000")))

	_, err = env.svc.SetMonthlyBudget(ctx, env.consultantID, client.ID, decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRemoveClient(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")
	env.buildPlan(t, client.ID, domain.PracticeGeneral)

	key := "photos/" + client.ID.Hex() + "/portrait.jpeg"
	_, err := env.svc.ConfirmPhotoUpload(ctx, env.consultantID, client.ID, key)
	require.NoError(t, err)

	require.NoError(t, env.svc.RemoveClient(ctx, env.consultantID, client.ID))

	clients, err := env.svc.ListClients(ctx, env.consultantID)
	require.NoError(t, err)
	assert.Empty(t, clients)

	// The photo is cleaned up and the replica told to forget the records.
	assert.Contains(t, env.store.deleted, key)
	assert.Equal(t, 1, env.pusher.deletes)

	_, err = env.svc.GetClient(ctx, env.consultantID, client.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestPhotoFlow(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	client := env.createClient(t, "Mike", "Jones")

	_, err := env.svc.RequestPhotoUploadURL(ctx, env.consultantID, client.ID, "application/pdf")
	assert.ErrorIs(t, err, ErrValidation)

	resp, err := env.svc.RequestPhotoUploadURL(ctx, env.consultantID, client.ID, "image/jpeg")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ObjectKey)
	assert.Contains(t, resp.UploadURL, resp.ObjectKey)

	_, err = env.svc.GetPhotoDownloadURL(ctx, env.consultantID, client.ID)
	assert.ErrorIs(t, err, ErrNoPhoto)

	updated, err := env.svc.ConfirmPhotoUpload(ctx, env.consultantID, client.ID, resp.ObjectKey)
	require.NoError(t, err)
	require.NotNil(t, updated.PhotoObjectKey)

	url, err := env.svc.GetPhotoDownloadURL(ctx, env.consultantID, client.ID)
	require.NoError(t, err)
	assert.Contains(t, url, resp.ObjectKey)
}

func TestObserversNotifiedOnEveryMutation(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	var notified atomic.Int64
	env.svc.AddObserver(ObserverFunc(func() { notified.Add(1) }))

	client := env.createClient(t, "Mike", "Jones")
	assert.EqualValues(t, 1, notified.Load())

	env.buildPlan(t, client.ID, domain.PracticeGeneral)
	assert.EqualValues(t, 2, notified.Load())

	_, err := env.svc.SetMonthlyBudget(ctx, env.consultantID, client.ID, decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, notified.Load())

	// Reads do not notify.
	_, err = env.svc.ListClients(ctx, env.consultantID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, notified.Load())

	// Failed mutations do not notify.
	_, err = env.svc.SetMonthlyBudget(ctx, env.consultantID, client.ID, decimal.RequireFromString("-1"))
	require.Error(t, err)
	assert.EqualValues(t, 3, notified.Load())

	require.NoError(t, env.svc.RemoveClient(ctx, env.consultantID, client.ID))
	assert.EqualValues(t, 4, notified.Load())
}

func TestReplicaPushIsBestEffort(t *testing.T) {
	repo := newFakeClientRepo()
	svc := NewClientService(repo, &fakeStorage{}, failingPusher{}, catalog.Default(), zap.NewNop())

	// A failing replica push never fails the mutation.
	client, err := svc.CreateClient(context.Background(), primitive.NewObjectID(), validFields("Mike", "Jones"))
	require.NoError(t, err)
	assert.NotNil(t, client)
}

type failingPusher struct{}

func (failingPusher) PushClient(_ context.Context, _ *domain.Client) error {
	return assert.AnError
}

func (failingPusher) DeleteClient(_ context.Context, _ *domain.Client) error {
	return assert.AnError
}
