package dto

type RecommendedUserResponse struct {
	UID            string   `json:"uid"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	SkillDesired   []string `json:"skillDesired,omitempty"`
	SkillOffered   []string `json:"skillOffered,omitempty"`
}

type SkillRecordResponse struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type SkillDetailResponse struct {
	ID    int64               `json:"id"`
	Skill SkillRecordResponse `json:"skill"`
}

type RecommendationResponse struct {
	User                RecommendedUserResponse `json:"user"`
	SkillsOffered       []SkillDetailResponse   `json:"skillsOffered"`
	SkillsDesired       []SkillDetailResponse   `json:"skillsDesired"`
	RecommendationScore float64                 `json:"recommendationScore"`
	Reason              string                  `json:"reason"`
}
