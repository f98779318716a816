package transfer

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"max=100"`
}

type UnsubscribeRequest struct {
	Token string `json:"token" query:"token" validate:"required"`
}
