package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/middleware"
	"mao-amiga/pkg/queue"
	"mao-amiga/services/campaign/internal/entity"
	"mao-amiga/services/campaign/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCampaignUseCase struct {
	mock.Mock
}

func (m *MockCampaignUseCase) CreateCampaign(ctx context.Context, ownerID string, input entity.CampaignInput, image *entity.File) (*entity.Campaign, error) {
	args := m.Called(ctx, ownerID, input, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignUseCase) UpdateCampaign(ctx context.Context, ownerID, campaignID string, input entity.CampaignInput, image *entity.File, removeImage bool) (*entity.Campaign, error) {
	args := m.Called(ctx, ownerID, campaignID, input, image, removeImage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignUseCase) FinalizeCampaign(ctx context.Context, ownerID, campaignID string) (*entity.Campaign, error) {
	args := m.Called(ctx, ownerID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignUseCase) DeleteCampaign(ctx context.Context, ownerID, campaignID, confirmation string) error {
	args := m.Called(ctx, ownerID, campaignID, confirmation)
	return args.Error(0)
}

func (m *MockCampaignUseCase) GetCampaignForOwner(ctx context.Context, ownerID, campaignID string) (*entity.CampaignDetail, error) {
	args := m.Called(ctx, ownerID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CampaignDetail), args.Error(1)
}

func (m *MockCampaignUseCase) GetPublicCampaign(ctx context.Context, campaignID string) (*entity.CampaignDetail, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CampaignDetail), args.Error(1)
}

func (m *MockCampaignUseCase) ListPublicCampaigns(ctx context.Context, filter entity.CampaignFilter) ([]*entity.Campaign, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Campaign), args.Error(1)
}

func (m *MockCampaignUseCase) ListOwnerCampaigns(ctx context.Context, ownerID string) (*entity.OwnerDashboard, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OwnerDashboard), args.Error(1)
}

var _ usecase.CampaignUseCase = (*MockCampaignUseCase)(nil)

type MockDonationUseCase struct {
	mock.Mock
}

func (m *MockDonationUseCase) RecordDonation(ctx context.Context, campaignID string, input entity.DonationInput, proof *entity.File) (*entity.Supporter, error) {
	args := m.Called(ctx, campaignID, input, proof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Supporter), args.Error(1)
}

func (m *MockDonationUseCase) ReconcileRaised(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDonationUseCase) ReconcileRaisedForOwner(ctx context.Context, ownerID, campaignID string) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID, campaignID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDonationUseCase) ListSupporters(ctx context.Context, campaignID string, limit int) ([]entity.Supporter, error) {
	args := m.Called(ctx, campaignID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Supporter), args.Error(1)
}

func (m *MockDonationUseCase) HandleLedgerTask(ctx context.Context, task queue.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

var _ usecase.DonationUseCase = (*MockDonationUseCase)(nil)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newTestHandler() (*CampaignHandler, *MockCampaignUseCase, *MockDonationUseCase) {
	campaigns := new(MockCampaignUseCase)
	donations := new(MockDonationUseCase)
	return NewCampaignHandler(campaigns, donations, logger.New()), campaigns, donations
}

func asUser(userID string, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextUserID, userID)
		}
		next(c)
	}
}

type formPart struct {
	field       string
	filename    string
	contentType string
	content     string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		header.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func campaignForm() map[string]string {
	return map[string]string{
		"title":            "Cirurgia do Thor",
		"description":      "Ajude o Thor",
		"goal":             "1.500,00",
		"pix_key":          "thor@pix.com",
		"beneficiary_name": "Ana",
	}
}

func TestCreateCampaign_WithImage(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns", asUser("owner-1", handler.CreateCampaign))

	expectedInput := entity.CampaignInput{
		Title:           "Cirurgia do Thor",
		Description:     "Ajude o Thor",
		Goal:            "1.500,00",
		PixKey:          "thor@pix.com",
		BeneficiaryName: "Ana",
	}
	created := &entity.Campaign{ID: "c-1", CreatorID: "owner-1", Title: "Cirurgia do Thor", Status: entity.StatusActive}
	campaigns.On("CreateCampaign", mock.Anything, "owner-1", expectedInput, mock.MatchedBy(func(f *entity.File) bool {
		return f != nil && f.Name == "capa.png" && f.ContentType == "image/png"
	})).Return(created, nil)

	body, contentType := multipartBody(t, campaignForm(), formPart{"image", "capa.png", "image/png", "png"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c-1", decodeBody(t, w)["id"])
	campaigns.AssertExpectations(t)
}

func TestCreateCampaign_MissingFields(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns", asUser("owner-1", handler.CreateCampaign))

	body, contentType := multipartBody(t, map[string]string{"title": "Sem meta"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w), "error")
	campaigns.AssertNotCalled(t, "CreateCampaign")
}

func TestCreateCampaign_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("%w: goal", entity.ErrValidation), http.StatusBadRequest},
		{"unauthenticated", entity.ErrUnauthenticated, http.StatusUnauthorized},
		{"storage", fmt.Errorf("%w: bucket", entity.ErrStorage), http.StatusBadGateway},
		{"persistence", fmt.Errorf("%w: insert", entity.ErrPersistence), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, campaigns, _ := newTestHandler()
			router := setupTestRouter()
			router.POST("/campaigns", asUser("owner-1", handler.CreateCampaign))
			campaigns.On("CreateCampaign", mock.Anything, "owner-1", mock.Anything, (*entity.File)(nil)).Return(nil, tt.err)

			body, contentType := multipartBody(t, campaignForm())
			req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.Error(), decodeBody(t, w)["error"])
		})
	}
}

func TestUpdateCampaign_Forbidden(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.PUT("/campaigns/:id", asUser("intruder", handler.UpdateCampaign))

	campaigns.On("UpdateCampaign", mock.Anything, "intruder", "c-1", mock.Anything, (*entity.File)(nil), true).
		Return(nil, fmt.Errorf("%w: only the organizer can manage this campaign", entity.ErrPermission))

	form := campaignForm()
	form["remove_image"] = "true"
	body, contentType := multipartBody(t, form)
	req := httptest.NewRequest(http.MethodPut, "/campaigns/c-1", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	campaigns.AssertExpectations(t)
}

func TestFinalizeCampaign(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/finalize", asUser("owner-1", handler.FinalizeCampaign))

	campaigns.On("FinalizeCampaign", mock.Anything, "owner-1", "c-1").
		Return(&entity.Campaign{ID: "c-1", Status: entity.StatusCompleted}, nil)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/finalize", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeBody(t, w)["status"])
}

func TestDeleteCampaign(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.DELETE("/campaigns/:id", asUser("owner-1", handler.DeleteCampaign))

	campaigns.On("DeleteCampaign", mock.Anything, "owner-1", "c-1", "DELETAR").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/campaigns/c-1", strings.NewReader(`{"confirmation":"DELETAR"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	campaigns.AssertExpectations(t)
}

func TestDeleteCampaign_MissingConfirmation(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.DELETE("/campaigns/:id", asUser("owner-1", handler.DeleteCampaign))

	req := httptest.NewRequest(http.MethodDelete, "/campaigns/c-1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	campaigns.AssertNotCalled(t, "DeleteCampaign")
}

func TestListCampaigns_PassesSearchAndLimit(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.GET("/campaigns", handler.ListCampaigns)

	campaigns.On("ListPublicCampaigns", mock.Anything, entity.CampaignFilter{SearchTerm: "ração", Limit: 3}).
		Return([]*entity.Campaign{{ID: "c-1"}, {ID: "c-2"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/campaigns?q=ra%C3%A7%C3%A3o&limit=3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["count"])
}

func TestListCampaigns_InvalidLimit(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.GET("/campaigns", handler.ListCampaigns)

	req := httptest.NewRequest(http.MethodGet, "/campaigns?limit=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	campaigns.AssertNotCalled(t, "ListPublicCampaigns")
}

func TestGetCampaign_NotFound(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.GET("/campaigns/:id", handler.GetCampaign)

	campaigns.On("GetPublicCampaign", mock.Anything, "missing").Return(nil, fmt.Errorf("%w: campaign missing", entity.ErrNotFound))

	req := httptest.NewRequest(http.MethodGet, "/campaigns/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDonate_AnonymousWithProof(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/donations", handler.Donate)

	supporter := &entity.Supporter{ID: "s-1", CampaignID: "c-1", Name: entity.AnonymousDonorName, Amount: decimal.RequireFromString("25.50")}
	donations.On("RecordDonation", mock.Anything, "c-1", entity.DonationInput{Amount: "25,50"}, mock.MatchedBy(func(f *entity.File) bool {
		return f != nil && f.Name == "pix.pdf" && f.ContentType == "application/pdf"
	})).Return(supporter, nil)

	body, contentType := multipartBody(t, map[string]string{"amount": "25,50"}, formPart{"proof", "pix.pdf", "application/pdf", "%PDF"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/donations", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s-1", decodeBody(t, w)["id"])
	donations.AssertExpectations(t)
}

func TestDonate_LinksAuthenticatedDonor(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/donations", asUser("donor-1", handler.Donate))

	input := entity.DonationInput{Amount: "10", Name: "Lia", Message: "Boa sorte", DonorID: "donor-1"}
	donations.On("RecordDonation", mock.Anything, "c-1", input, (*entity.File)(nil)).
		Return(&entity.Supporter{ID: "s-2"}, nil)

	body, contentType := multipartBody(t, map[string]string{"amount": "10", "name": "Lia", "message": "Boa sorte"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/donations", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	donations.AssertExpectations(t)
}

func TestDonate_ClosedCampaign(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/donations", handler.Donate)

	donations.On("RecordDonation", mock.Anything, "c-1", mock.Anything, (*entity.File)(nil)).
		Return(nil, fmt.Errorf("%w: campaign c-1 is completed", entity.ErrCampaignClosed))

	body, contentType := multipartBody(t, map[string]string{"amount": "10"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/donations", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDonate_StaleTotalIsAccepted(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/donations", handler.Donate)

	donations.On("RecordDonation", mock.Anything, "c-1", mock.Anything, (*entity.File)(nil)).
		Return(&entity.Supporter{ID: "s-3"}, fmt.Errorf("%w: pending reconciliation", entity.ErrPersistence))

	body, contentType := multipartBody(t, map[string]string{"amount": "10"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/donations", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	response := decodeBody(t, w)
	assert.Contains(t, response, "warning")
	assert.Equal(t, "s-3", response["supporter"].(map[string]interface{})["id"])
}

func TestDonate_MissingAmount(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/donations", handler.Donate)

	body, contentType := multipartBody(t, map[string]string{"name": "Sem valor"})
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/donations", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	donations.AssertNotCalled(t, "RecordDonation")
}

func TestListSupporters_CapsPublicList(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.GET("/campaigns/:id/supporters", handler.ListSupporters)

	donations.On("ListSupporters", mock.Anything, "c-1", usecase.PublicSupporterLimit).
		Return([]entity.Supporter{{ID: "s-1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/c-1/supporters", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	donations.AssertExpectations(t)
}

func TestDashboard(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.GET("/dashboard/campaigns", asUser("owner-1", handler.Dashboard))

	campaigns.On("ListOwnerCampaigns", mock.Anything, "owner-1").Return(&entity.OwnerDashboard{
		Campaigns:            []entity.Campaign{{ID: "c-1"}},
		TotalRaised:          "300.00",
		TotalRaisedFormatted: "R$ 300,00",
		ActiveCount:          1,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/campaigns", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, "300.00", response["total_raised"])
	assert.Equal(t, float64(1), response["active_count"])
}

func TestGetOwnerCampaign_Unauthenticated(t *testing.T) {
	handler, campaigns, _ := newTestHandler()
	router := setupTestRouter()
	router.GET("/dashboard/campaigns/:id", handler.GetOwnerCampaign)

	campaigns.On("GetCampaignForOwner", mock.Anything, "", "c-1").Return(nil, entity.ErrUnauthenticated)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/campaigns/c-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReconcileCampaign(t *testing.T) {
	handler, _, donations := newTestHandler()
	router := setupTestRouter()
	router.POST("/campaigns/:id/reconcile", asUser("owner-1", handler.ReconcileCampaign))

	donations.On("ReconcileRaisedForOwner", mock.Anything, "owner-1", "c-1").Return(decimal.RequireFromString("300"), nil)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/c-1/reconcile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "300.00", decodeBody(t, w)["raised"])
}
