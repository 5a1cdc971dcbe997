package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/i18n"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/store"
	"github.com/javajoker/licensing-portal/internal/utils"
)

const (
	dealerEmail    = "dealer@guns.example"
	officerEmail   = "officer@police.example"
	oversightEmail = "chief@police.example"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta json.RawMessage `json:"meta"`
}

// brokenStore fails every write the way an unreachable database would.
type brokenStore struct {
	store.Store
}

func (brokenStore) WithinTx(context.Context, func(store.Tx) error) error {
	return errors.New("pq: connection refused")
}

type RouterTestSuite struct {
	suite.Suite
	cfg    *config.Config
	store  *store.MemoryStore
	router *gin.Engine
	stop   func()
	jwt    *utils.JWTManager
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT:         config.JWTConfig{SecretKey: "test-secret", Issuer: "licensing-test"},
		Workflow:    config.WorkflowConfig{OperationTimeout: time.Second},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Frontend:    config.FrontendConfig{BaseURL: "http://localhost:3000", AllowedOrigins: []string{"http://localhost:3000"}},
		AWS:         config.AWSConfig{Region: "us-east-1", S3Bucket: "licensing-test", PresignTTL: 15},
	}
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize())
}

func (suite *RouterTestSuite) SetupTest() {
	suite.cfg = testConfig()
	suite.store = store.NewMemoryStore()
	suite.jwt = utils.NewJWTManager(suite.cfg.JWT.SecretKey, suite.cfg.JWT.Issuer)

	r, stop, err := Initialize(suite.store, suite.cfg, prometheus.NewRegistry())
	suite.Require().NoError(err)
	suite.router = r
	suite.stop = stop
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.stop()
}

func (suite *RouterTestSuite) TestStopReleasesRateLimiters() {
	done := make(chan struct{})
	go func() {
		suite.stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.T().Fatal("rate limiter workers did not stop")
	}
}

func (suite *RouterTestSuite) token(email string, role models.Role) string {
	token, err := suite.jwt.GenerateJWT(email, string(role), time.Hour)
	suite.Require().NoError(err)
	return token
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func submitBody() map[string]interface{} {
	return map[string]interface{}{
		"applicant_name":        "Jane Doe",
		"applicant_national_id": "A123456789",
		"firearm_id":            "SN-0001",
		"officer_identity":      officerEmail,
	}
}

func (suite *RouterTestSuite) submit() string {
	w, resp := suite.do(http.MethodPost, "/v1/applications", suite.token(dealerEmail, models.RoleDealer), submitBody())
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Application models.Application `json:"application"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &data))
	suite.Require().Equal(models.StatusAssignedToOfficer, data.Application.Status)
	return data.Application.UID.String()
}

func (suite *RouterTestSuite) TestHealth() {
	w, _ := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestSubmitAndTimeline() {
	uid := suite.submit()

	w, resp := suite.do(http.MethodGet, "/v1/applications/"+uid+"/timeline", suite.token(officerEmail, models.RoleOfficer), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var timeline struct {
		Application models.Application       `json:"application"`
		Events      []models.TransitionEvent `json:"events"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &timeline))
	suite.Require().Len(timeline.Events, 2)
	assert.Nil(suite.T(), timeline.Events[0].FromStatus)
	assert.Equal(suite.T(), models.ActionCreate, timeline.Events[0].Action)
	assert.Equal(suite.T(), models.ActionAssignToOfficer, timeline.Events[1].Action)
}

func (suite *RouterTestSuite) TestTransitions() {
	uid := suite.submit()
	path := "/v1/applications/" + uid + "/transitions"
	officerToken := suite.token(officerEmail, models.RoleOfficer)

	w, resp := suite.do(http.MethodPost, path, officerToken, map[string]string{"action": "APPROVE"})
	suite.Require().Equal(http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "ILLEGAL_TRANSITION", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, path, suite.token(dealerEmail, models.RoleDealer), map[string]string{"action": "START_REVIEW"})
	suite.Require().Equal(http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, path, officerToken, map[string]string{"action": "FLY"})
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, path, officerToken, map[string]string{"action": "START_REVIEW", "note": "picked up"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Message string                 `json:"message"`
		Event   models.TransitionEvent `json:"event"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &data))
	assert.Equal(suite.T(), "Application moved to under_review", data.Message)
	assert.Equal(suite.T(), "picked up", data.Event.Note)

	w, resp = suite.do(http.MethodGet, "/v1/applications/"+uid+"/actions", officerToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"actions":["APPROVE","ESCALATE","REJECT","REQUEST_INFORMATION"]}`, string(resp.Data))
}

func (suite *RouterTestSuite) TestNotFoundAndBadUID() {
	officerToken := suite.token(officerEmail, models.RoleOfficer)

	w, resp := suite.do(http.MethodGet, "/v1/applications/"+uuid.NewString()+"/timeline", officerToken, nil)
	suite.Require().Equal(http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "Application not found", resp.Error.Message)

	w, _ = suite.do(http.MethodPost, "/v1/applications/"+uuid.NewString()+"/transitions", officerToken, map[string]string{"action": "START_REVIEW"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/applications/not-a-uid/timeline", officerToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestSubmitRejections() {
	w, _ := suite.do(http.MethodPost, "/v1/applications", "", submitBody())
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, _ = suite.do(http.MethodPost, "/v1/applications", suite.token(officerEmail, models.RoleOfficer), submitBody())
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	body := submitBody()
	delete(body, "firearm_id")
	w, resp := suite.do(http.MethodPost, "/v1/applications", suite.token(dealerEmail, models.RoleDealer), body)
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), string(resp.Error.Details), `"field":"firearm_id"`)

	req := httptest.NewRequest(http.MethodPost, "/v1/applications", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+suite.token(dealerEmail, models.RoleDealer))
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *RouterTestSuite) TestListApplications() {
	suite.submit()
	suite.submit()

	w, resp := suite.do(http.MethodGet, "/v1/applications?limit=1", suite.token(dealerEmail, models.RoleDealer), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "2", w.Header().Get("X-Total-Count"))
	assert.Equal(suite.T(), "2", w.Header().Get("X-Total-Pages"))

	var apps []models.Application
	suite.Require().NoError(json.Unmarshal(resp.Data, &apps))
	assert.Len(suite.T(), apps, 1)

	w, _ = suite.do(http.MethodGet, "/v1/applications", suite.token("stranger@guns.example", models.RoleDealer), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "0", w.Header().Get("X-Total-Count"))
}

func (suite *RouterTestSuite) TestWorkflowTable() {
	w, resp := suite.do(http.MethodGet, "/v1/workflow/transitions", suite.token(oversightEmail, models.RoleOversight), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var data struct {
		InitialStatus models.Status `json:"initial_status"`
		Transitions   []struct {
			Action models.Action `json:"action"`
		} `json:"transitions"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &data))
	assert.Equal(suite.T(), models.StatusAssignedToOfficer, data.InitialStatus)
	assert.Len(suite.T(), data.Transitions, 12)
}

func (suite *RouterTestSuite) TestPresignUnavailable() {
	w, resp := suite.do(http.MethodPost, "/v1/attachments/presign", suite.token(dealerEmail, models.RoleDealer), map[string]string{"filename": "permit.pdf"})
	suite.Require().Equal(http.StatusServiceUnavailable, w.Code)
	assert.Equal(suite.T(), "ATTACHMENTS_UNAVAILABLE", resp.Error.Code)
}

func (suite *RouterTestSuite) TestIntegrityFailureIsGeneric() {
	uid := uuid.New()
	at := time.Now().UTC()
	err := suite.store.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertApplication(context.Background(), &models.Application{
			UID: uid, ApplicantName: "Jane", ApplicantNationalID: "A1234", FirearmID: "SN-1",
			OfficerIdentity: officerEmail, DealerIdentity: dealerEmail,
			Status: models.StatusUnderReview, Revision: 3, CreatedAt: at, UpdatedAt: at,
		})
	})
	suite.Require().NoError(err)

	w, resp := suite.do(http.MethodGet, "/v1/applications/"+uid.String()+"/timeline", suite.token(officerEmail, models.RoleOfficer), nil)
	suite.Require().Equal(http.StatusInternalServerError, w.Code)
	assert.Equal(suite.T(), "CONTACT_SUPPORT", resp.Error.Code)
	assert.NotContains(suite.T(), w.Body.String(), "revision")
}

func (suite *RouterTestSuite) TestPersistenceFailureIsGeneric() {
	r, stop, err := Initialize(brokenStore{Store: suite.store}, suite.cfg, prometheus.NewRegistry())
	suite.Require().NoError(err)
	defer stop()
	suite.router = r

	w, resp := suite.do(http.MethodPost, "/v1/applications", suite.token(dealerEmail, models.RoleDealer), submitBody())
	suite.Require().Equal(http.StatusServiceUnavailable, w.Code)
	assert.Equal(suite.T(), "TRY_AGAIN", resp.Error.Code)
	assert.NotContains(suite.T(), w.Body.String(), "pq:")
}

func (suite *RouterTestSuite) TestMetricsEndpoint() {
	uid := suite.submit()
	suite.do(http.MethodPost, "/v1/applications/"+uid+"/transitions", suite.token(officerEmail, models.RoleOfficer), map[string]string{"action": "APPROVE"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `licensing_submissions_total{outcome="ok"} 1`)
	assert.Contains(suite.T(), w.Body.String(), `licensing_transitions_total{action="APPROVE",outcome="illegal_transition"} 1`)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
