package entity

// CampaignDetail is the normalized view handed to the presentation layer.
type CampaignDetail struct {
	Campaign
	ImageURLOrPlaceholder string      `json:"display_image_url"`
	CreatorName           string      `json:"creator_name"`
	CreatorAvatarURL      *string     `json:"creator_avatar_url,omitempty"`
	Percentage            int         `json:"percentage"`
	GoalFormatted         string      `json:"goal_formatted"`
	RaisedFormatted       string      `json:"raised_formatted"`
	Supporters            []Supporter `json:"supporters"`
}

type OwnerDashboard struct {
	Campaigns            []Campaign `json:"campaigns"`
	TotalRaised          string     `json:"total_raised"`
	TotalRaisedFormatted string     `json:"total_raised_formatted"`
	ActiveCount          int        `json:"active_count"`
}
