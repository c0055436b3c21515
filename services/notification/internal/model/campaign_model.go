package model

// CampaignModel is the read-only slice of the campaigns table this service
// needs to word its alerts.
type CampaignModel struct {
	ID    string `gorm:"type:uuid;primary_key"`
	Title string
}

func (CampaignModel) TableName() string {
	return "campaigns"
}
