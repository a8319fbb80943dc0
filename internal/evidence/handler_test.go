package evidence_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/evidence"
	"github.com/richxcame/cyber-patrol/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter(repo *mocks.MockEvidenceRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	evidence.NewHandler(evidence.NewService(repo)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateEvidence(t *testing.T) {
	repo := new(mocks.MockEvidenceRepository)
	r := setupRouter(repo)

	repo.On("CreateWithCustody", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	// []byte travels as base64
	w := doJSON(r, http.MethodPost, "/api/v1/evidence", map[string]interface{}{
		"evidence_type": "screenshot",
		"evidence_data": []byte("png bytes"),
		"officer":       "si.rao",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, evidence.HashContent([]byte("png bytes")), resp.Data["content_hash"])
	assert.Equal(t, "collected", resp.Data["legal_status"])
	assert.Equal(t, false, resp.Data["court_admissible"])
	assert.NotContains(t, resp.Data, "evidence_data")
}

func TestHandler_CreateEvidence_Errors(t *testing.T) {
	repo := new(mocks.MockEvidenceRepository)
	r := setupRouter(repo)
	alertID := uuid.New()

	repo.On("AlertExists", mock.Anything, alertID).Return(false, nil).Once()

	w := doJSON(r, http.MethodPost, "/api/v1/evidence", map[string]interface{}{
		"alert_id":      alertID,
		"evidence_type": "profile",
		"evidence_data": []byte("x"),
		"officer":       "si.rao",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/evidence", map[string]interface{}{
		"evidence_type": "hologram",
		"evidence_data": []byte("x"),
		"officer":       "si.rao",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/evidence", map[string]interface{}{"officer": "si.rao"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_VerifyIntegrity(t *testing.T) {
	repo := new(mocks.MockEvidenceRepository)
	r := setupRouter(repo)

	clean := sampleEvidence(evidence.LegalCollected)
	tampered := sampleEvidence(evidence.LegalSubmitted)
	tampered.Data = []byte("altered")
	missing := uuid.New()

	repo.On("GetByID", mock.Anything, clean.ID).Return(clean, nil)
	repo.On("GetByID", mock.Anything, tampered.ID).Return(tampered, nil)
	repo.On("GetByID", mock.Anything, missing).Return(nil, evidence.ErrEvidenceNotFound)
	repo.On("RecordIntegrity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := doJSON(r, http.MethodPost, "/api/v1/evidence/"+clean.ID.String()+"/verify", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/evidence/"+tampered.ID.String()+"/verify", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Success bool                     `json:"success"`
		Data    evidence.IntegrityReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, evidence.IntegrityTampered, resp.Data.Result)

	w = doJSON(r, http.MethodPost, "/api/v1/evidence/"+missing.String()+"/verify", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, evidence.IntegrityNotFound, resp.Data.Result)

	w = doJSON(r, http.MethodPost, "/api/v1/evidence/not-a-uuid/verify", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_AppendAndListCustody(t *testing.T) {
	repo := new(mocks.MockEvidenceRepository)
	r := setupRouter(repo)
	e := sampleEvidence(evidence.LegalCollected)
	entries := []*evidence.CustodyEntry{
		{ID: uuid.New(), EvidenceID: e.ID, Action: evidence.ActionCollected, Officer: "si.rao"},
		{ID: uuid.New(), EvidenceID: e.ID, Action: evidence.ActionAnalyzed, Officer: "si.rao"},
	}

	repo.On("GetByID", mock.Anything, e.ID).Return(e, nil)
	repo.On("AppendCustody", mock.Anything, mock.Anything, mock.Anything).Return(evidence.LegalAnalyzed, nil).Once()
	repo.On("ListCustody", mock.Anything, e.ID).Return(entries, nil).Once()

	w := doJSON(r, http.MethodPost, "/api/v1/evidence/"+e.ID.String()+"/custody", evidence.AppendCustodyRequest{
		Action: evidence.ActionAnalyzed, Officer: "si.rao",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/evidence/"+e.ID.String()+"/custody", map[string]string{
		"action": "burned", "officer": "si.rao",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/evidence/"+e.ID.String()+"/custody", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []evidence.CustodyEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestHandler_ListAlertEvidence(t *testing.T) {
	repo := new(mocks.MockEvidenceRepository)
	r := setupRouter(repo)
	alertID := uuid.New()

	repo.On("AlertExists", mock.Anything, alertID).Return(true, nil).Once()
	repo.On("ListByAlert", mock.Anything, alertID).Return([]*evidence.Evidence{sampleEvidence(evidence.LegalCollected)}, nil).Once()

	w := doJSON(r, http.MethodGet, "/api/v1/alerts/"+alertID.String()+"/evidence", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestHandler_ArchiveURL_WithoutArchive(t *testing.T) {
	repo := new(mocks.MockEvidenceRepository)
	r := setupRouter(repo)
	e := sampleEvidence(evidence.LegalCollected)

	repo.On("GetByID", mock.Anything, e.ID).Return(e, nil).Once()

	w := doJSON(r, http.MethodGet, "/api/v1/evidence/"+e.ID.String()+"/archive", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
