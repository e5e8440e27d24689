package session

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Content is one block of a message body. TextContent is the only variant.
type Content interface {
	isContent()
}

// TextContent is a plain text block.
type TextContent struct {
	Text string
}

func (TextContent) isContent() {}

// Message is one utterance in the conversation.
//
// AuthorName identifies the producing tool on tool messages. Recipient is set
// on assistant messages routed to a tool ("functions.read_file") and on tool
// results routed back ("assistant"). Channel is a free-form tag such as
// "analysis", "commentary" or "final". ContentType carries a constraint hint
// like "<|constrain|>json".
type Message struct {
	Role        Role
	AuthorName  string
	Recipient   string
	Channel     string
	ContentType string
	Content     []Content
}

// NewMessage creates a message with a single text block.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Content: []Content{TextContent{Text: text}}}
}

func (m Message) WithRecipient(recipient string) Message {
	m.Recipient = recipient
	return m
}

func (m Message) WithChannel(channel string) Message {
	m.Channel = channel
	return m
}

func (m Message) WithAuthorName(name string) Message {
	m.AuthorName = name
	return m
}

func (m Message) WithContentType(contentType string) Message {
	m.ContentType = contentType
	return m
}

// Text returns the first text block of the message.
func (m Message) Text() (string, bool) {
	for _, c := range m.Content {
		if tc, ok := c.(TextContent); ok {
			return tc.Text, true
		}
	}
	return "", false
}
