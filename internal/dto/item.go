package dto

import "github.com/noah-isme/inventory-loan-api/internal/models"

// CreateItemRequest is the payload for registering an item. An empty ItemID is generated.
type CreateItemRequest struct {
	ItemID      string            `json:"itemId" validate:"omitempty,max=64"`
	Name        string            `json:"name" validate:"required,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Location    *string           `json:"location" validate:"omitempty,max=200"`
	PhotoURL    *string           `json:"photoUrl" validate:"omitempty,url"`
	Origin      models.ItemOrigin `json:"origin" validate:"omitempty,oneof=purchased donated other"`
	DonorName   *string           `json:"donorName" validate:"omitempty,max=200"`
	Barcode     *string           `json:"barcode" validate:"omitempty,max=128"`
	Status      models.ItemStatus `json:"status" validate:"omitempty,oneof=available maintenance"`
}

// UpdateItemRequest carries a partial edit; nil fields are left untouched.
type UpdateItemRequest struct {
	ItemID      *string            `json:"itemId" validate:"omitempty,min=1,max=64"`
	Name        *string            `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	Location    *string            `json:"location" validate:"omitempty,max=200"`
	PhotoURL    *string            `json:"photoUrl" validate:"omitempty,url"`
	Origin      *models.ItemOrigin `json:"origin" validate:"omitempty,oneof=purchased donated other"`
	DonorName   *string            `json:"donorName" validate:"omitempty,max=200"`
	Barcode     *string            `json:"barcode" validate:"omitempty,max=128"`
	Status      *models.ItemStatus `json:"status" validate:"omitempty,oneof=available loaned maintenance"`
}

// ItemQuery captures list query parameters.
type ItemQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=available loaned maintenance"`
	Search   string `form:"search"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}
