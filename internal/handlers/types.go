package handlers

// GenerateRequest is the request body for POST /generate.
type GenerateRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Prompt      string `json:"prompt" binding:"required"`
	SourceImage string `json:"source_image,omitempty"` // base64 PNG
	Voice       string `json:"voice,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

// GenerateResponse is returned after a successful generation.
type GenerateResponse struct {
	ReceiptID string `json:"receipt_id"`
	Kind      string `json:"kind"`
	Cost      int64  `json:"cost"`
	Balance   int64  `json:"balance"`
	Attempts  int    `json:"attempts"`
	Rotations int    `json:"rotations"`
	MIMEType  string `json:"mime_type,omitempty"`
	Data      string `json:"data,omitempty"` // base64 artifact payload
	Text      string `json:"text,omitempty"`
}

// TopupCreateRequest is the request body for POST /topups.
type TopupCreateRequest struct {
	Amount     int64  `json:"amount" binding:"required"`
	Price      int64  `json:"price" binding:"required"`
	ReceiptURL string `json:"receipt_url,omitempty"`
}

// SetCreditsRequest is the request body for PUT /admin/members/:email/credits.
type SetCreditsRequest struct {
	Credits int64 `json:"credits" binding:"min=0"`
}

// SetPriceRequest is the request body for PUT /admin/settings/prices.
type SetPriceRequest struct {
	Kind string `json:"kind" binding:"required"`
	Cost int64  `json:"cost" binding:"required"`
}
