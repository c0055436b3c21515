package http

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/middleware"
	"mao-amiga/services/campaign/internal/entity"
	"mao-amiga/services/campaign/internal/usecase"

	"github.com/gin-gonic/gin"
)

type CampaignHandler struct {
	campaignUseCase usecase.CampaignUseCase
	donationUseCase usecase.DonationUseCase
	logger          *logger.Logger
}

func NewCampaignHandler(campaignUseCase usecase.CampaignUseCase, donationUseCase usecase.DonationUseCase, logger *logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaignUseCase: campaignUseCase,
		donationUseCase: donationUseCase,
		logger:          logger,
	}
}

type CampaignRequest struct {
	Title           string `form:"title" binding:"required"`
	Description     string `form:"description" binding:"required"`
	Goal            string `form:"goal" binding:"required"`
	PixKey          string `form:"pix_key" binding:"required"`
	BeneficiaryName string `form:"beneficiary_name" binding:"required"`
	RemoveImage     bool   `form:"remove_image"`
}

func (r CampaignRequest) toInput() entity.CampaignInput {
	return entity.CampaignInput{
		Title:           r.Title,
		Description:     r.Description,
		Goal:            r.Goal,
		PixKey:          r.PixKey,
		BeneficiaryName: r.BeneficiaryName,
	}
}

type DonationRequest struct {
	Amount  string `form:"amount" binding:"required"`
	Name    string `form:"name"`
	Message string `form:"message"`
}

type DeleteCampaignRequest struct {
	Confirmation string `json:"confirmation" binding:"required"`
}

// openFormFile returns a nil file when the field was not sent. The caller
// must invoke the returned close function.
func openFormFile(c *gin.Context, field string) (*entity.File, func(), error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return openFileHeader(header)
}

func openFileHeader(header *multipart.FileHeader) (*entity.File, func(), error) {
	src, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	file := &entity.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        src,
	}
	return file, func() { src.Close() }, nil
}

// ListCampaigns godoc
// @Summary      List active campaigns
// @Description  Active campaigns, newest first. q filters by title or description (case-insensitive); limit=3 gives the featured list.
// @Tags         campaigns
// @Produce      json
// @Param        q query string false "Search term"
// @Param        limit query int false "Maximum number of campaigns"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /campaigns [get]
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	filter := entity.CampaignFilter{SearchTerm: c.Query("q")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	campaigns, err := h.campaignUseCase.ListPublicCampaigns(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "list campaigns", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "count": len(campaigns)})
}

// GetCampaign godoc
// @Summary      Get campaign
// @Description  Public campaign page: campaign, organizer name, progress and the latest supporters
// @Tags         campaigns
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Success      200  {object}  entity.CampaignDetail
// @Failure      404  {object}  map[string]string
// @Router       /campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	detail, err := h.campaignUseCase.GetPublicCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get campaign", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ListSupporters godoc
// @Summary      Latest supporters
// @Tags         donations
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /campaigns/{id}/supporters [get]
func (h *CampaignHandler) ListSupporters(c *gin.Context) {
	supporters, err := h.donationUseCase.ListSupporters(c.Request.Context(), c.Param("id"), usecase.PublicSupporterLimit)
	if err != nil {
		h.respondError(c, "list supporters", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"supporters": supporters, "count": len(supporters)})
}

// Donate godoc
// @Summary      Register a donation
// @Description  Records a self-reported Pix donation. Authentication is optional; when present the donor is linked to the supporter record.
// @Tags         donations
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Campaign ID"
// @Param        amount formData string true "Amount, e.g. 1.234,56 or 1234.56"
// @Param        name formData string false "Display name, anonymous when empty"
// @Param        message formData string false "Message to the organizer"
// @Param        proof formData file false "Receipt (image or PDF)"
// @Success      201  {object}  entity.Supporter
// @Success      202  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /campaigns/{id}/donations [post]
func (h *CampaignHandler) Donate(c *gin.Context) {
	var req DonationRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proof, closeProof, err := openFormFile(c, "proof")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read receipt"})
		return
	}
	defer closeProof()

	input := entity.DonationInput{
		Amount:  req.Amount,
		Name:    req.Name,
		Message: req.Message,
		DonorID: c.GetString(middleware.ContextUserID),
	}

	supporter, err := h.donationUseCase.RecordDonation(c.Request.Context(), c.Param("id"), input, proof)
	if err != nil {
		if supporter != nil && errors.Is(err, entity.ErrPersistence) {
			h.logger.Warn("Donation %s accepted with stale total: %v", supporter.ID, err)
			c.JSON(http.StatusAccepted, gin.H{"supporter": supporter, "warning": err.Error()})
			return
		}
		h.respondError(c, "record donation", err)
		return
	}

	c.JSON(http.StatusCreated, supporter)
}

// CreateCampaign godoc
// @Summary      Create a campaign
// @Tags         campaigns
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title formData string true "Title"
// @Param        description formData string true "Description"
// @Param        goal formData string true "Goal, e.g. 1.500,00"
// @Param        pix_key formData string true "Pix key"
// @Param        beneficiary_name formData string true "Beneficiary name"
// @Param        image formData file false "Cover image"
// @Success      201  {object}  entity.Campaign
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, closeImage, err := openFormFile(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
		return
	}
	defer closeImage()

	campaign, err := h.campaignUseCase.CreateCampaign(c.Request.Context(), c.GetString(middleware.ContextUserID), req.toInput(), image)
	if err != nil {
		h.respondError(c, "create campaign", err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// UpdateCampaign godoc
// @Summary      Update a campaign
// @Description  Only the organizer can edit. A new image replaces the cover; remove_image=true without a new image clears it.
// @Tags         campaigns
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID"
// @Param        title formData string true "Title"
// @Param        description formData string true "Description"
// @Param        goal formData string true "Goal"
// @Param        pix_key formData string true "Pix key"
// @Param        beneficiary_name formData string true "Beneficiary name"
// @Param        remove_image formData bool false "Clear the cover image"
// @Param        image formData file false "New cover image"
// @Success      200  {object}  entity.Campaign
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, closeImage, err := openFormFile(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
		return
	}
	defer closeImage()

	campaign, err := h.campaignUseCase.UpdateCampaign(
		c.Request.Context(),
		c.GetString(middleware.ContextUserID),
		c.Param("id"),
		req.toInput(),
		image,
		req.RemoveImage,
	)
	if err != nil {
		h.respondError(c, "update campaign", err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// FinalizeCampaign godoc
// @Summary      Finalize a campaign
// @Description  Closes the campaign for donations. Calling it again is a no-op.
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID"
// @Success      200  {object}  entity.Campaign
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /campaigns/{id}/finalize [post]
func (h *CampaignHandler) FinalizeCampaign(c *gin.Context) {
	campaign, err := h.campaignUseCase.FinalizeCampaign(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		h.respondError(c, "finalize campaign", err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign godoc
// @Summary      Delete a campaign
// @Description  Permanently removes the campaign and its supporters. The body must carry {"confirmation": "DELETAR"}.
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID"
// @Param        request body DeleteCampaignRequest true "Typed confirmation"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	var req DeleteCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation is required"})
		return
	}

	campaignID := c.Param("id")
	if err := h.campaignUseCase.DeleteCampaign(c.Request.Context(), c.GetString(middleware.ContextUserID), campaignID, req.Confirmation); err != nil {
		h.respondError(c, "delete campaign", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted", "id": campaignID})
}

// Dashboard godoc
// @Summary      Organizer dashboard
// @Description  All of the caller's campaigns with total raised and active count
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.OwnerDashboard
// @Failure      401  {object}  map[string]string
// @Router       /dashboard/campaigns [get]
func (h *CampaignHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.campaignUseCase.ListOwnerCampaigns(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.respondError(c, "load dashboard", err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetOwnerCampaign godoc
// @Summary      Manage a campaign
// @Description  Campaign detail with the full supporter history, organizer only
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID"
// @Success      200  {object}  entity.CampaignDetail
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /dashboard/campaigns/{id} [get]
func (h *CampaignHandler) GetOwnerCampaign(c *gin.Context) {
	detail, err := h.campaignUseCase.GetCampaignForOwner(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		h.respondError(c, "get campaign for owner", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ReconcileCampaign godoc
// @Summary      Recompute raised
// @Description  Sets raised to the sum of the recorded donations
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Campaign ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /campaigns/{id}/reconcile [post]
func (h *CampaignHandler) ReconcileCampaign(c *gin.Context) {
	campaignID := c.Param("id")
	raised, err := h.donationUseCase.ReconcileRaisedForOwner(c.Request.Context(), c.GetString(middleware.ContextUserID), campaignID)
	if err != nil {
		h.respondError(c, "reconcile campaign", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": campaignID, "raised": raised.StringFixed(2)})
}
