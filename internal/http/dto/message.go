package dto

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=4000"`
}
