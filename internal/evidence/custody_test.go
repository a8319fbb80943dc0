package evidence

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo keeps evidence in memory with the same forward-only rules as the SQL repository
type memRepo struct {
	mu      sync.Mutex
	alerts  map[uuid.UUID]bool
	items   map[uuid.UUID]*Evidence
	custody map[uuid.UUID][]*CustodyEntry
}

func newMemRepo(alertIDs ...uuid.UUID) *memRepo {
	r := &memRepo{
		alerts:  make(map[uuid.UUID]bool),
		items:   make(map[uuid.UUID]*Evidence),
		custody: make(map[uuid.UUID][]*CustodyEntry),
	}
	for _, id := range alertIDs {
		r.alerts[id] = true
	}
	return r
}

func (r *memRepo) AlertExists(_ context.Context, alertID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alerts[alertID], nil
}

func (r *memRepo) CreateWithCustody(_ context.Context, e *Evidence, first *CustodyEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *e
	stored.Data = append([]byte(nil), e.Data...)
	r.items[e.ID] = &stored
	entry := *first
	r.custody[e.ID] = []*CustodyEntry{&entry}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, ErrEvidenceNotFound
	}
	out := *e
	out.Data = append([]byte(nil), e.Data...)
	out.deriveAdmissibility()
	return &out, nil
}

func (r *memRepo) AppendCustody(_ context.Context, entry *CustodyEntry, advanceTo *LegalStatus) (LegalStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[entry.EvidenceID]
	if !ok {
		return "", ErrEvidenceNotFound
	}
	copied := *entry
	r.custody[entry.EvidenceID] = append(r.custody[entry.EvidenceID], &copied)
	if advanceTo != nil && advanceTo.Rank() > e.LegalStatus.Rank() {
		e.LegalStatus = *advanceTo
	}
	return e.LegalStatus, nil
}

func (r *memRepo) ListCustody(_ context.Context, evidenceID uuid.UUID) ([]*CustodyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*CustodyEntry(nil), r.custody[evidenceID]...), nil
}

func (r *memRepo) ListByAlert(_ context.Context, alertID uuid.UUID) ([]*Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Evidence
	for _, e := range r.items {
		if e.AlertID != nil && *e.AlertID == alertID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memRepo) RecordIntegrity(_ context.Context, id uuid.UUID, result IntegrityResult, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return ErrEvidenceNotFound
	}
	e.LastIntegrityResult = &result
	e.LastVerifiedAt = &at
	return nil
}

func (r *memRepo) SetArchiveKey(_ context.Context, id uuid.UUID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.items[id]; ok {
		e.ArchiveKey = key
	}
	return nil
}

// corrupt alters stored bytes out-of-band
func (r *memRepo) corrupt(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].Data[0] ^= 0xFF
}

type fakeArchive struct {
	mu         sync.Mutex
	objects    map[string][]byte
	hashes     map[string]string
	failUpload bool
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte), hashes: make(map[string]string)}
}

func (a *fakeArchive) ArchiveEvidence(_ context.Context, key string, data []byte, contentHash string) (*storage.UploadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failUpload {
		return nil, errors.New("bucket unavailable")
	}
	a.objects[key] = append([]byte(nil), data...)
	a.hashes[key] = contentHash
	return &storage.UploadResult{Key: key, Size: int64(len(data)), Checksum: contentHash}, nil
}

func (a *fakeArchive) Download(_ context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (a *fakeArchive) GetPresignedDownloadURL(_ context.Context, key string, expiresIn time.Duration) (*storage.PresignedURLResult, error) {
	return &storage.PresignedURLResult{URL: "https://archive.test/" + key, Method: "GET", ExpiresAt: time.Now().Add(expiresIn)}, nil
}

func newTestService(repo RepositoryInterface, opts ...Option) *Service {
	s := NewService(repo, opts...)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func createSample(t *testing.T, s *Service, alertID *uuid.UUID) *Evidence {
	t.Helper()
	e, err := s.CreateEvidence(context.Background(), &CreateEvidenceRequest{
		AlertID: alertID,
		Type:    TypeScreenshot,
		Data:    []byte("screenshot of UPI payment request to 9876543210"),
		Officer: "inspector.patil",
	})
	require.NoError(t, err)
	return e
}

func TestCreateEvidence_HashesAndOpensCustody(t *testing.T) {
	alertID := uuid.New()
	repo := newMemRepo(alertID)
	s := newTestService(repo)

	e := createSample(t, s, &alertID)

	assert.Equal(t, HashContent([]byte("screenshot of UPI payment request to 9876543210")), e.ContentHash)
	assert.Len(t, e.ContentHash, 64)
	assert.Equal(t, LegalCollected, e.LegalStatus)
	assert.False(t, e.CourtAdmissible)

	entries, err := s.ListCustody(context.Background(), e.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionCollected, entries[0].Action)
	assert.Equal(t, "inspector.patil", entries[0].Officer)
}

func TestCreateEvidence_CopiesPayload(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo)
	payload := []byte("chat export")

	e, err := s.CreateEvidence(context.Background(), &CreateEvidenceRequest{Type: TypeConversation, Data: payload, Officer: "si.rao"})
	require.NoError(t, err)
	payload[0] = 'X'

	report, err := s.VerifyIntegrity(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, IntegrityIntact, report.Result)
}

func TestCreateEvidence_UnknownAlert(t *testing.T) {
	s := newTestService(newMemRepo())
	missing := uuid.New()

	_, err := s.CreateEvidence(context.Background(), &CreateEvidenceRequest{
		AlertID: &missing, Type: TypeProfile, Data: []byte("x"), Officer: "si.rao",
	})
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestCreateEvidence_SurvivesCallerCancellation(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := s.CreateEvidence(ctx, &CreateEvidenceRequest{Type: TypeOther, Data: []byte("x"), Officer: "si.rao"})
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), e.ID)
	assert.NoError(t, err)
}

// Scenario D
func TestIntegrity_TamperingBlocksAdmissibility(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo)
	ctx := context.Background()
	e := createSample(t, s, nil)

	report, err := s.VerifyIntegrity(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, IntegrityIntact, report.Result)
	assert.Equal(t, report.StoredHash, report.ComputedHash)

	repo.corrupt(e.ID)

	report, err = s.VerifyIntegrity(ctx, e.ID)
	assert.ErrorIs(t, err, ErrIntegrityMismatch)
	require.NotNil(t, report)
	assert.Equal(t, IntegrityTampered, report.Result)
	assert.NotEqual(t, report.StoredHash, report.ComputedHash)

	result, err := s.AppendCustody(ctx, e.ID, &AppendCustodyRequest{Action: ActionSubmitted, Officer: "dsp.kulkarni"})
	require.NoError(t, err)
	assert.Equal(t, LegalSubmitted, result.Evidence.LegalStatus)
	assert.False(t, result.Evidence.CourtAdmissible)

	stored, err := s.GetEvidence(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ContentHash, stored.ContentHash, "hash is never repaired")
	assert.False(t, stored.CourtAdmissible)
}

func TestIntegrity_AdmissibleAfterSubmissionAndCleanCheck(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo)
	ctx := context.Background()
	e := createSample(t, s, nil)

	_, err := s.AppendCustody(ctx, e.ID, &AppendCustodyRequest{Action: ActionSubmitted, Officer: "dsp.kulkarni"})
	require.NoError(t, err)

	stored, err := s.GetEvidence(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, stored.CourtAdmissible, "no integrity check yet")

	_, err = s.VerifyIntegrity(ctx, e.ID)
	require.NoError(t, err)

	stored, err = s.GetEvidence(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, stored.CourtAdmissible)
}

func TestIntegrity_NotFound(t *testing.T) {
	s := newTestService(newMemRepo())
	id := uuid.New()

	report, err := s.VerifyIntegrity(context.Background(), id)
	assert.ErrorIs(t, err, ErrEvidenceNotFound)
	require.NotNil(t, report)
	assert.Equal(t, IntegrityNotFound, report.Result)
	assert.Equal(t, id, report.EvidenceID)
}

func TestAppendCustody_LegalStatusOnlyMovesForward(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo)
	ctx := context.Background()
	e := createSample(t, s, nil)

	steps := []struct {
		action   Action
		want     LegalStatus
		advanced bool
	}{
		{ActionAnalyzed, LegalAnalyzed, true},
		{ActionReviewed, LegalAnalyzed, false},
		{ActionSubmitted, LegalSubmitted, true},
		{ActionAnalyzed, LegalSubmitted, false},
		{ActionCollected, LegalSubmitted, false},
		{ActionExported, LegalSubmitted, false},
		{ActionArchived, LegalArchived, true},
		{ActionSubmitted, LegalArchived, false},
	}
	for _, step := range steps {
		result, err := s.AppendCustody(ctx, e.ID, &AppendCustodyRequest{Action: step.action, Officer: "si.rao"})
		require.NoError(t, err, step.action)
		assert.Equal(t, step.want, result.Evidence.LegalStatus, step.action)
		assert.Equal(t, step.advanced, result.Advanced, step.action)
	}

	entries, err := s.ListCustody(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, entries, len(steps)+1, "every action is kept in history")
	assert.Equal(t, ActionCollected, entries[0].Action)
}

func TestAppendCustody_SkippingAheadIsAllowed(t *testing.T) {
	repo := newMemRepo()
	s := newTestService(repo)
	e := createSample(t, s, nil)

	result, err := s.AppendCustody(context.Background(), e.ID, &AppendCustodyRequest{Action: ActionSubmitted, Officer: "si.rao"})
	require.NoError(t, err)
	assert.Equal(t, LegalSubmitted, result.Evidence.LegalStatus)
}

func TestAppendCustody_UnknownEvidence(t *testing.T) {
	s := newTestService(newMemRepo())

	_, err := s.AppendCustody(context.Background(), uuid.New(), &AppendCustodyRequest{Action: ActionReviewed, Officer: "si.rao"})
	assert.ErrorIs(t, err, ErrEvidenceNotFound)
}

func TestArchive_CopiesPayloadAndRecordsKey(t *testing.T) {
	repo := newMemRepo()
	archive := newFakeArchive()
	s := newTestService(repo, WithArchiver(archive))

	e := createSample(t, s, nil)

	assert.Equal(t, storage.GenerateEvidenceKey(e.ID, "screenshot", e.CollectedAt), e.ArchiveKey)
	assert.Equal(t, e.ContentHash, archive.hashes[e.ArchiveKey])

	stored, err := repo.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ArchiveKey, stored.ArchiveKey)

	report, err := s.VerifyIntegrity(context.Background(), e.ID)
	require.NoError(t, err)
	require.NotNil(t, report.ArchiveResult)
	assert.Equal(t, IntegrityIntact, *report.ArchiveResult)

	link, err := s.ArchiveURL(context.Background(), e.ID, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, link.URL, e.ArchiveKey)
}

func TestArchive_FailureDoesNotFailCreation(t *testing.T) {
	repo := newMemRepo()
	archive := newFakeArchive()
	archive.failUpload = true
	s := newTestService(repo, WithArchiver(archive))

	e := createSample(t, s, nil)
	assert.Empty(t, e.ArchiveKey)

	_, err := s.ArchiveURL(context.Background(), e.ID, time.Minute)
	assert.ErrorIs(t, err, ErrNoArchive)
}

func TestArchive_DetectsTamperedCopy(t *testing.T) {
	repo := newMemRepo()
	archive := newFakeArchive()
	s := newTestService(repo, WithArchiver(archive))
	e := createSample(t, s, nil)

	archive.objects[e.ArchiveKey] = []byte("edited")

	report, err := s.VerifyIntegrity(context.Background(), e.ID)
	require.NoError(t, err, "the database copy is still intact")
	assert.Equal(t, IntegrityIntact, report.Result)
	require.NotNil(t, report.ArchiveResult)
	assert.Equal(t, IntegrityTampered, *report.ArchiveResult)

	delete(archive.objects, e.ArchiveKey)
	report, err = s.VerifyIntegrity(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, IntegrityNotFound, *report.ArchiveResult)
}

func TestListByAlert(t *testing.T) {
	alertID := uuid.New()
	repo := newMemRepo(alertID)
	s := newTestService(repo)
	createSample(t, s, &alertID)
	createSample(t, s, &alertID)
	createSample(t, s, nil)

	items, err := s.ListByAlert(context.Background(), alertID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = s.ListByAlert(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestLegalStatusRank(t *testing.T) {
	assert.Less(t, LegalCollected.Rank(), LegalAnalyzed.Rank())
	assert.Less(t, LegalAnalyzed.Rank(), LegalSubmitted.Rank())
	assert.Less(t, LegalSubmitted.Rank(), LegalArchived.Rank())
	assert.Equal(t, -1, LegalStatus("lost").Rank())

	_, ok := ActionReviewed.LegalStatus()
	assert.False(t, ok)
	_, ok = ActionExported.LegalStatus()
	assert.False(t, ok)
}

func TestDeriveAdmissibility(t *testing.T) {
	intact := IntegrityIntact
	tampered := IntegrityTampered

	tests := []struct {
		name   string
		status LegalStatus
		last   *IntegrityResult
		want   bool
	}{
		{"collected intact", LegalCollected, &intact, false},
		{"analyzed intact", LegalAnalyzed, &intact, false},
		{"submitted unchecked", LegalSubmitted, nil, false},
		{"submitted tampered", LegalSubmitted, &tampered, false},
		{"submitted intact", LegalSubmitted, &intact, true},
		{"archived intact", LegalArchived, &intact, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Evidence{LegalStatus: tt.status, LastIntegrityResult: tt.last}
			e.deriveAdmissibility()
			assert.Equal(t, tt.want, e.CourtAdmissible)
		})
	}
}
