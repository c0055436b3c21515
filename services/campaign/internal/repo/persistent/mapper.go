package persistent

import (
	"mao-amiga/services/campaign/internal/entity"
	"mao-amiga/services/campaign/internal/model"
)

func ToCampaignEntity(m *model.CampaignModel) *entity.Campaign {
	if m == nil {
		return nil
	}

	return &entity.Campaign{
		ID:              m.ID,
		CreatorID:       m.CreatorID,
		Title:           m.Title,
		Description:     m.Description,
		Goal:            m.Goal,
		Raised:          m.Raised,
		PixKey:          m.PixKey,
		BeneficiaryName: m.BeneficiaryName,
		ImageURL:        m.ImageURL,
		Status:          entity.CampaignStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func ToCampaignModel(e *entity.Campaign) *model.CampaignModel {
	if e == nil {
		return nil
	}

	return &model.CampaignModel{
		ID:              e.ID,
		CreatorID:       e.CreatorID,
		Title:           e.Title,
		Description:     e.Description,
		Goal:            e.Goal,
		Raised:          e.Raised,
		PixKey:          e.PixKey,
		BeneficiaryName: e.BeneficiaryName,
		ImageURL:        e.ImageURL,
		Status:          string(e.Status),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func ToSupporterEntity(m *model.SupporterModel) entity.Supporter {
	if m == nil {
		return entity.Supporter{}
	}

	return entity.Supporter{
		ID:         m.ID,
		CampaignID: m.CampaignID,
		Name:       m.Name,
		Amount:     m.Amount,
		Message:    m.Message,
		DonorID:    m.DonorID,
		ProofURL:   m.ProofURL,
		CreatedAt:  m.CreatedAt,
	}
}

func ToSupporterModel(e *entity.Supporter) *model.SupporterModel {
	if e == nil {
		return nil
	}

	return &model.SupporterModel{
		ID:         e.ID,
		CampaignID: e.CampaignID,
		Name:       e.Name,
		Amount:     e.Amount,
		Message:    e.Message,
		DonorID:    e.DonorID,
		ProofURL:   e.ProofURL,
		CreatedAt:  e.CreatedAt,
	}
}

func ToProfileEntity(m *model.ProfileModel) *entity.Profile {
	if m == nil {
		return nil
	}

	return &entity.Profile{
		ID:        m.ID,
		Name:      m.Name,
		AvatarURL: m.AvatarURL,
	}
}
