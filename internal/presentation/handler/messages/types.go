package messages

type createMessageRequest struct {
	Content string `json:"content"`
	Name    string `json:"name"`
	ReplyTo string `json:"replyTo"`
}

type reactRequest struct {
	Reaction string `json:"reaction"` // thumbsUp or thumbsDown
}
