package http

type CreateRoomResponse struct {
	Room        string `json:"room"`
	ClientURL   string `json:"client_url"`
	OperatorURL string `json:"operator_url"`
}

type ConflictResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type RoomStatusResponse struct {
	Exists      bool `json:"exists"`
	HasOperator bool `json:"has_operator"`
	HasClient   bool `json:"has_client"`
}

type RoomMissingResponse struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
