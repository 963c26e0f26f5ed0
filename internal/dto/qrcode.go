package dto

// GenerateQRCodesRequest asks for a batch of unassigned codes.
type GenerateQRCodesRequest struct {
	Prefix      string  `json:"prefix" validate:"required,max=32,labelprefix"`
	Quantity    int     `json:"quantity" validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// AssociateQRCodeRequest binds a generated code to an item.
type AssociateQRCodeRequest struct {
	QRCodeID string `json:"qrCodeId" validate:"required"`
	ItemID   int64  `json:"itemId" validate:"required,min=1"`
}

type QRCodeQuery struct {
	Assigned *bool `form:"assigned"`
	Limit    int   `form:"limit" validate:"omitempty,min=1,max=500"`
	Offset   int   `form:"offset" validate:"omitempty,min=0"`
}
