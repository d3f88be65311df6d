package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"driveaudit/internal/orchestrator"
	"driveaudit/internal/pipeline"
	"driveaudit/pkg/domain"
	"driveaudit/pkg/drive"
	"driveaudit/pkg/logger"
	"driveaudit/pkg/serrors"
	"driveaudit/pkg/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// accountClient serves a small fixed listing for one account. listErr fails
// the full-projection pass; blockCh, when set, stalls the listing until
// closed so tests can cancel mid-flight.
type accountClient struct {
	drive.Client

	items   []domain.Item
	listErr error
	blockCh chan struct{}
}

func (c *accountClient) Verify(context.Context) error { return nil }

func (c *accountClient) ListFiles(_ context.Context, opts drive.ListOptions) (drive.FilePage, error) {
	if c.blockCh != nil {
		<-c.blockCh
	}
	if !opts.IDsOnly && c.listErr != nil {
		return drive.FilePage{}, c.listErr
	}

	page := drive.FilePage{}
	for _, item := range c.items {
		if opts.IDsOnly {
			page.Items = append(page.Items, domain.Item{ID: item.ID})
		} else {
			page.Items = append(page.Items, item)
		}
	}

	return page, nil
}

func (c *accountClient) FolderName(context.Context, string) (string, error) { return "", nil }

// fakeProvider hands out per-account clients and counts delegations.
type fakeProvider struct {
	mu      sync.Mutex
	clients map[string]*accountClient
	calls   map[string]int
	errFor  map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		clients: make(map[string]*accountClient),
		calls:   make(map[string]int),
		errFor:  make(map[string]error),
	}
}

func (p *fakeProvider) ClientFor(_ context.Context, subject string) (drive.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls[subject]++
	if err := p.errFor[subject]; err != nil {
		return nil, err
	}
	client, ok := p.clients[subject]
	if !ok {
		return nil, fmt.Errorf("no client for %s", subject)
	}

	return client, nil
}

func (p *fakeProvider) callsFor(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[subject]
}

// jobStore is an in-memory storage covering everything the orchestrator and
// the pipeline touch. It checks the checkpoint bookkeeping on every write.
type jobStore struct {
	storage.Storage

	mu    sync.Mutex
	t     *testing.T
	orgs  map[domain.OrgID]domain.Organization
	jobs  map[domain.JobID]domain.IntegratedScanJob
	scans map[domain.ScanID]domain.Scan
	files int
}

func newJobStore(t *testing.T, org domain.Organization) *jobStore {
	return &jobStore{
		t:     t,
		orgs:  map[domain.OrgID]domain.Organization{org.ID: org},
		jobs:  make(map[domain.JobID]domain.IntegratedScanJob),
		scans: make(map[domain.ScanID]domain.Scan),
	}
}

func copyJob(job domain.IntegratedScanJob) domain.IntegratedScanJob {
	job.TargetUsers = append([]string(nil), job.TargetUsers...)
	job.UserResults = append([]domain.UserScanResult(nil), job.UserResults...)

	return job
}

func (s *jobStore) StoreIntegratedJob(_ context.Context,
	job domain.IntegratedScanJob) (*domain.IntegratedScanJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = copyJob(job)
	cp := copyJob(job)

	return &cp, nil
}

func (s *jobStore) IntegratedJobByID(_ context.Context,
	id domain.JobID) (*domain.IntegratedScanJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := copyJob(job)

	return &cp, nil
}

func (s *jobStore) UpdateIntegratedJobByID(_ context.Context,
	id domain.JobID,
	updates storage.JobUpdates) (*domain.IntegratedScanJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}

	if updates.Status != "" {
		job.Status = updates.Status
	}
	if updates.UserResults != nil {
		job.UserResults = append([]domain.UserScanResult(nil), updates.UserResults...)
	}
	if updates.LastProcessedUserIndex != nil {
		job.LastProcessedUserIndex = *updates.LastProcessedUserIndex
	}
	if updates.ProcessedUsers != nil {
		job.ProcessedUsers = *updates.ProcessedUsers
	}
	if updates.CurrentUserEmail != nil {
		job.CurrentUserEmail = *updates.CurrentUserEmail
	}
	if updates.TotalRiskySummary != nil {
		job.TotalRiskySummary = *updates.TotalRiskySummary
	}
	if updates.TotalFilesScanned != nil {
		job.TotalFilesScanned = *updates.TotalFilesScanned
	}
	if updates.ErrorMessage != nil {
		job.ErrorMessage = *updates.ErrorMessage
	}
	if updates.CompletedAt != nil {
		job.CompletedAt = *updates.CompletedAt
	}
	job.UpdatedAt = time.Now()

	// the checkpoint and the terminal-result count move in lockstep
	require.Equal(s.t, job.LastProcessedUserIndex+1, job.ProcessedUsers)
	for i := 0; i <= job.LastProcessedUserIndex; i++ {
		require.True(s.t, job.UserResults[i].Status.Terminal())
	}

	s.jobs[id] = copyJob(job)
	cp := copyJob(job)

	return &cp, nil
}

func (s *jobStore) OrganizationByID(_ context.Context, id domain.OrgID) (*domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, nil
	}

	return &org, nil
}

func (s *jobStore) IncrementScanStats(context.Context, domain.OrgID, int) error { return nil }

func (s *jobStore) StoreScan(_ context.Context, scan domain.Scan) (*domain.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scan.CreatedAt = time.Now()
	s.scans[scan.ID] = scan
	cp := scan

	return &cp, nil
}

func (s *jobStore) UpdateScanByID(_ context.Context,
	id domain.ScanID,
	updates storage.ScanUpdates) (*domain.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scan, ok := s.scans[id]
	if !ok {
		return nil, nil
	}

	if updates.Status != "" {
		scan.Status = updates.Status
	}
	if updates.Phase != "" {
		scan.Phase = updates.Phase
	}
	if updates.TotalFiles != nil {
		scan.TotalFiles = *updates.TotalFiles
	}
	if updates.ProcessedFiles != nil {
		scan.ProcessedFiles = *updates.ProcessedFiles
	}
	if updates.RiskySummary != nil {
		scan.RiskySummary = *updates.RiskySummary
	}
	if updates.ErrorMessage != nil {
		scan.ErrorMessage = *updates.ErrorMessage
	}
	if updates.CompletedAt != nil {
		scan.CompletedAt = *updates.CompletedAt
	}

	s.scans[id] = scan
	cp := scan

	return &cp, nil
}

func (s *jobStore) StoreScanFiles(_ context.Context, files ...domain.ScanFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files += len(files)

	return nil
}

func (s *jobStore) UpsertFolderSummaries(context.Context, ...domain.FolderSummary) error {
	return nil
}

func (s *jobStore) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.scans)
}

func accountItems(prefix string, n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:         fmt.Sprintf("%s-file-%d", prefix, i),
			Name:       "doc",
			OwnerEmail: prefix,
			ModifiedAt: time.Now(),
		}
	}

	return items
}

func newOrchestrator(store *jobStore, provider *fakeProvider) *orchestrator.Orchestrator {
	pipe := pipeline.New(store, pipeline.Options{PageSize: 10})

	return orchestrator.New(store, provider, pipe)
}

func driveToCompletion(t *testing.T, o *orchestrator.Orchestrator, id domain.JobID) {
	t.Helper()

	for i := 0; i < 20; i++ {
		done, err := o.Step(context.Background(), id)
		require.NoError(t, err)
		if done {
			return
		}
	}
	t.Fatal("job did not finish within the step budget")
}

func TestOrchestrator_MiddleAccountFailureDoesNotFailJob(t *testing.T) {
	t.Parallel()

	org := domain.Organization{ID: domain.OrgID(uuid.New()), Domain: "acme.com", Plan: domain.PlanPro}
	store := newJobStore(t, org)

	provider := newFakeProvider()
	provider.clients["a@acme.com"] = &accountClient{items: accountItems("a@acme.com", 2)}
	provider.clients["b@acme.com"] = &accountClient{
		items:   accountItems("b@acme.com", 2),
		listErr: errors.New("provider unavailable"),
	}
	provider.clients["c@acme.com"] = &accountClient{items: accountItems("c@acme.com", 3)}

	o := newOrchestrator(store, provider)

	seed := domain.IntegratedScanJob{
		ID:     domain.JobID(uuid.New()),
		OrgID:  org.ID,
		Status: domain.JobStatusRunning,
		TargetUsers: []string{
			"a@acme.com", "b@acme.com", "c@acme.com",
		},
		UserResults: []domain.UserScanResult{
			{Email: "a@acme.com", Status: domain.UserScanPending},
			{Email: "b@acme.com", Status: domain.UserScanPending},
			{Email: "c@acme.com", Status: domain.UserScanPending},
		},
		LastProcessedUserIndex: -1,
		StartedAt:              time.Now(),
	}
	_, err := store.StoreIntegratedJob(context.Background(), seed)
	require.NoError(t, err)

	driveToCompletion(t, o, seed.ID)

	job, err := store.IntegratedJobByID(context.Background(), seed.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Equal(t, 3, job.ProcessedUsers)
	require.Equal(t, 2, job.LastProcessedUserIndex)
	require.Empty(t, job.CurrentUserEmail)
	require.False(t, job.CompletedAt.IsZero())

	require.Equal(t, domain.UserScanCompleted, job.UserResults[0].Status)
	require.Equal(t, domain.UserScanFailed, job.UserResults[1].Status)
	require.Equal(t, domain.UserScanCompleted, job.UserResults[2].Status)
	require.Contains(t, job.UserResults[1].ErrorMessage, "provider unavailable")

	// the failed account contributes a scan record but no counted files
	require.NotNil(t, job.UserResults[1].ScanID)
	require.Equal(t, 0, job.UserResults[1].FilesScanned)
	require.Equal(t, 5, job.TotalFilesScanned)
	require.Equal(t, 5, job.TotalRiskySummary.Total())
}

func TestOrchestrator_DelegationFailureIsPerAccount(t *testing.T) {
	t.Parallel()

	org := domain.Organization{ID: domain.OrgID(uuid.New()), Domain: "acme.com", Plan: domain.PlanFree}
	store := newJobStore(t, org)

	provider := newFakeProvider()
	provider.errFor["blocked@acme.com"] = serrors.With(serrors.ErrDelegation, "delegation rejected")
	provider.clients["ok@acme.com"] = &accountClient{items: accountItems("ok@acme.com", 1)}

	o := newOrchestrator(store, provider)

	job, err := o.Start(context.Background(), org, []string{"blocked@acme.com", "ok@acme.com"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := store.IntegratedJobByID(context.Background(), job.ID)

		return err == nil && current.Status == domain.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	final, err := store.IntegratedJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.UserScanFailed, final.UserResults[0].Status)
	require.Contains(t, final.UserResults[0].ErrorMessage, "delegation rejected")
	require.Nil(t, final.UserResults[0].ScanID)
	require.Equal(t, domain.UserScanCompleted, final.UserResults[1].Status)
}

func TestOrchestrator_ResumeContinuesFromCheckpoint(t *testing.T) {
	t.Parallel()

	org := domain.Organization{ID: domain.OrgID(uuid.New()), Domain: "acme.com", Plan: domain.PlanFree}
	store := newJobStore(t, org)

	provider := newFakeProvider()
	provider.clients["a@acme.com"] = &accountClient{items: accountItems("a@acme.com", 1)}
	provider.clients["b@acme.com"] = &accountClient{items: accountItems("b@acme.com", 1)}
	provider.clients["c@acme.com"] = &accountClient{items: accountItems("c@acme.com", 1)}

	o := newOrchestrator(store, provider)

	// a job as another process left it: account 0 finished, then a crash
	doneScan := domain.ScanID(uuid.New())
	seed := domain.IntegratedScanJob{
		ID:     domain.JobID(uuid.New()),
		OrgID:  org.ID,
		Status: domain.JobStatusRunning,
		TargetUsers: []string{
			"a@acme.com", "b@acme.com", "c@acme.com",
		},
		UserResults: []domain.UserScanResult{
			{Email: "a@acme.com", Status: domain.UserScanCompleted, ScanID: &doneScan, FilesScanned: 1},
			{Email: "b@acme.com", Status: domain.UserScanPending},
			{Email: "c@acme.com", Status: domain.UserScanPending},
		},
		LastProcessedUserIndex: 0,
		ProcessedUsers:         1,
		TotalFilesScanned:      1,
		StartedAt:              time.Now(),
	}
	_, err := store.StoreIntegratedJob(context.Background(), seed)
	require.NoError(t, err)

	// a plain status read resumes the driving loop
	resumed, err := o.Status(context.Background(), seed.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusRunning, resumed.Status)

	require.Eventually(t, func() bool {
		current, err := store.IntegratedJobByID(context.Background(), seed.ID)

		return err == nil && current.Status == domain.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	final, err := store.IntegratedJobByID(context.Background(), seed.ID)
	require.NoError(t, err)
	require.Equal(t, 3, final.ProcessedUsers)
	require.Equal(t, 3, final.TotalFilesScanned)

	// index 0 was never reprocessed
	require.Equal(t, 0, provider.callsFor("a@acme.com"))
	require.Equal(t, 1, provider.callsFor("b@acme.com"))
	require.Equal(t, 1, provider.callsFor("c@acme.com"))
	require.Equal(t, &doneScan, final.UserResults[0].ScanID)
}

func TestOrchestrator_CancelDiscardsInFlightResult(t *testing.T) {
	t.Parallel()

	org := domain.Organization{ID: domain.OrgID(uuid.New()), Domain: "acme.com", Plan: domain.PlanFree}
	store := newJobStore(t, org)

	blockCh := make(chan struct{})
	provider := newFakeProvider()
	provider.clients["slow@acme.com"] = &accountClient{
		items:   accountItems("slow@acme.com", 1),
		blockCh: blockCh,
	}
	provider.clients["next@acme.com"] = &accountClient{items: accountItems("next@acme.com", 1)}

	o := newOrchestrator(store, provider)

	job, err := o.Start(context.Background(), org, []string{"slow@acme.com", "next@acme.com"})
	require.NoError(t, err)

	// wait for the first account's pipeline to be in flight
	require.Eventually(t, func() bool {
		return provider.callsFor("slow@acme.com") == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancelled, err := o.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCancelled, cancelled.Status)

	// let the in-flight pipeline finish; its result must be discarded
	close(blockCh)

	require.Eventually(t, func() bool {
		current, err := store.IntegratedJobByID(context.Background(), job.ID)

		return err == nil && current.LastProcessedUserIndex == -1 &&
			provider.callsFor("next@acme.com") == 0
	}, 5*time.Second, 10*time.Millisecond)

	final, err := store.IntegratedJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCancelled, final.Status)
	require.Equal(t, 0, final.ProcessedUsers)

	// cancelling again is a no-op
	again, err := o.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, final.CompletedAt, again.CompletedAt)
}

func TestOrchestrator_StartRejectsEmptyTargetList(t *testing.T) {
	t.Parallel()

	org := domain.Organization{ID: domain.OrgID(uuid.New()), Domain: "acme.com", Plan: domain.PlanFree}
	store := newJobStore(t, org)
	o := newOrchestrator(store, newFakeProvider())

	_, err := o.Start(context.Background(), org, nil)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestOrchestrator_StatusUnknownJob(t *testing.T) {
	t.Parallel()

	org := domain.Organization{ID: domain.OrgID(uuid.New()), Domain: "acme.com", Plan: domain.PlanFree}
	store := newJobStore(t, org)
	o := newOrchestrator(store, newFakeProvider())

	_, err := o.Status(context.Background(), domain.JobID(uuid.New()))
	require.ErrorIs(t, err, serrors.ErrNotFound)
}
