package v1handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"driveaudit/internal/api/handler/v1handler"
	"driveaudit/pkg/domain"
	"driveaudit/pkg/serrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func withOrg(r *http.Request, orgID domain.OrgID) *http.Request {
	return r.WithContext(v1handler.ContextWithOrgID(r.Context(), orgID))
}

func TestCreateScan(t *testing.T) {
	t.Parallel()

	orgID := domain.OrgID(uuid.New())
	fake := &fakeAuditor{scan: &domain.Scan{
		ID:      domain.ScanID(uuid.New()),
		OrgID:   orgID,
		Subject: "user@acme.com",
		Status:  domain.ScanStatusRunning,
		Phase:   domain.ScanPhaseCounting,
	}}
	mux := newTestMux(fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/scans",
		strings.NewReader(`{"subject":"user@acme.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, orgID))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, orgID, fake.gotOrgID)
	require.Equal(t, "user@acme.com", fake.gotSubject)

	var got domain.Scan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, domain.ScanStatusRunning, got.Status)
}

func TestCreateScan_InvalidBody(t *testing.T) {
	t.Parallel()

	mux := newTestMux(&fakeAuditor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateScan_PlanLimit(t *testing.T) {
	t.Parallel()

	mux := newTestMux(&fakeAuditor{err: serrors.With(serrors.ErrPlanLimit, "monthly scan limit reached")})

	req := httptest.NewRequest(http.MethodPost, "/v1/scans",
		strings.NewReader(`{"subject":"user@acme.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "monthly scan limit reached")
}

func TestCreateScan_DelegationFailure(t *testing.T) {
	t.Parallel()

	mux := newTestMux(&fakeAuditor{err: serrors.With(serrors.ErrDelegation, "delegation check failed")})

	req := httptest.NewRequest(http.MethodPost, "/v1/scans",
		strings.NewReader(`{"subject":"user@acme.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetScan(t *testing.T) {
	t.Parallel()

	scanID := domain.ScanID(uuid.New())
	fake := &fakeAuditor{scan: &domain.Scan{ID: scanID, Status: domain.ScanStatusCompleted}}
	mux := newTestMux(fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/scans/"+scanID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Scan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, domain.ScanStatusCompleted, got.Status)
}

func TestGetScan_NotFound(t *testing.T) {
	t.Parallel()

	mux := newTestMux(&fakeAuditor{err: serrors.With(serrors.ErrNotFound, "scan not found")})

	req := httptest.NewRequest(http.MethodGet, "/v1/scans/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetScan_BadID(t *testing.T) {
	t.Parallel()

	mux := newTestMux(&fakeAuditor{})

	req := httptest.NewRequest(http.MethodGet, "/v1/scans/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListScans(t *testing.T) {
	t.Parallel()

	fake := &fakeAuditor{
		scans:      []domain.Scan{{ID: domain.ScanID(uuid.New())}, {ID: domain.ScanID(uuid.New())}},
		nextCursor: "2026-08-01T00:00:00Z",
	}
	mux := newTestMux(fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/scans?limit=2&cursor=abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc", fake.gotCursor)
	require.Equal(t, uint(2), fake.gotLimit)

	var got v1handler.ScanList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 2)
	require.Equal(t, "2026-08-01T00:00:00Z", got.NextCursor)
}

func TestListScans_DefaultAndCappedLimit(t *testing.T) {
	t.Parallel()

	fake := &fakeAuditor{}
	mux := newTestMux(fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/scans", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint(v1handler.DefaultLimit), fake.gotLimit)

	req = httptest.NewRequest(http.MethodGet, "/v1/scans?limit=5000", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint(v1handler.MaxLimit), fake.gotLimit)

	req = httptest.NewRequest(http.MethodGet, "/v1/scans?limit=zero", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListScanFiles(t *testing.T) {
	t.Parallel()

	scanID := domain.ScanID(uuid.New())
	fake := &fakeAuditor{
		files: []domain.ScanFile{{
			ScanID: scanID,
			FileID: "file-1",
			Assessment: domain.RiskAssessment{
				Score: 40,
				Level: domain.RiskLevelMedium,
			},
		}},
		nextCursor: "file-1",
	}
	mux := newTestMux(fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/scans/"+scanID.String()+"/files", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusOK, rec.Code)

	var got v1handler.ScanFileList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	require.Equal(t, "file-1", got.NextCursor)
	require.Equal(t, domain.RiskLevelMedium, got.Items[0].Assessment.Level)
}

func TestListScans_EmptyPageIsEmptyArray(t *testing.T) {
	t.Parallel()

	mux := newTestMux(&fakeAuditor{})

	req := httptest.NewRequest(http.MethodGet, "/v1/scans", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, withOrg(req, domain.OrgID(uuid.New())))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"items":[]`)
}
