package dto

// ActivityQuery captures list query parameters for the activity feed.
type ActivityQuery struct {
	ItemID int64  `form:"itemId" validate:"omitempty,min=1"`
	Type   string `form:"type" validate:"omitempty,oneof=new loan return edit delete qrGenerated qrAssociated"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}
