package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sims-core-api/internal/middleware"
	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/service"
)

type fakeResultSrv struct {
	result      *models.Result
	err         error
	lastPublish service.PublishRequest
}

func (f *fakeResultSrv) CreateDraft(context.Context, service.CreateDraftRequest) (*models.Result, error) {
	return f.result, f.err
}

func (f *fakeResultSrv) Get(context.Context, string) (*models.Result, error) {
	return f.result, f.err
}

func (f *fakeResultSrv) UpdateDraft(context.Context, string, service.UpdateDraftRequest) (*models.Result, error) {
	return f.result, f.err
}

func (f *fakeResultSrv) Publish(_ context.Context, _ string, req service.PublishRequest) (*models.Result, error) {
	f.lastPublish = req
	return f.result, f.err
}

func TestResultHandlerCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(&fakeResultSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(&fakeResultSrv{
		result: &models.Result{ID: "res-1", State: models.ResultStateDraft},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results",
		strings.NewReader(`{"student_id":"stu-1","section_id":"sec-1","grade":"B"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestResultHandlerPublishRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(&fakeResultSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results/res-1/publish", nil)

	handler.Publish(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResultHandlerPublishStampsCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeResultSrv{
		result: &models.Result{ID: "res-1", State: models.ResultStatePublished},
	}
	handler := NewResultHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results/res-1/publish", nil)
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty})

	handler.Publish(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fac-1", service.lastPublish.PublisherID)
}
