package chat

// UntitledChat is shown for chats created without a title.
const UntitledChat = "Untitled chat"

// DefaultNewChatTitle is used when the user leaves the title prompt blank.
const DefaultNewChatTitle = "New GST Chat"

// Chat is a conversation thread owned by the signed-in user.
type Chat struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
}

// DisplayTitle returns the title or a placeholder.
func (c Chat) DisplayTitle() string {
	if c.Title == "" {
		return UntitledChat
	}
	return c.Title
}

// Identity is the payload of the identity endpoint.
type Identity struct {
	Email string `json:"email"`
}
