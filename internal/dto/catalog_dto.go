package dto

// ActivityTypeRequest creates or replaces an activity catalog entry.
type ActivityTypeRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=120"`
	Category    string `json:"category" validate:"required,max=60"`
	Points      int    `json:"points" validate:"gte=0,lte=1000"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// CompetencyRequest creates or replaces a competency.
type CompetencyRequest struct {
	Code        string `json:"code" validate:"required,alphanum,max=20"`
	Name        string `json:"name" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// ReviewRequest approves or rejects a remote submission.
type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Points   *int   `json:"points" validate:"omitempty,gte=0,lte=1000"`
	Note     string `json:"note" validate:"omitempty,max=1000"`
}
