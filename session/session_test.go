package session

import (
	"testing"
)

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()
	c, err := NewConversation(NewMessage(RoleSystem, "sys"), NewMessage(RoleDeveloper, "dev"))
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	return c
}

func TestNewConversationSeeds(t *testing.T) {
	c := newTestConversation(t)
	if c.Len() != 2 {
		t.Fatalf("expected 2 seed messages, got %d", c.Len())
	}
	if c.At(0).Role != RoleSystem || c.At(1).Role != RoleDeveloper {
		t.Fatalf("unexpected seed roles: %q, %q", c.At(0).Role, c.At(1).Role)
	}
}

func TestNewConversationRejectsWrongRoles(t *testing.T) {
	if _, err := NewConversation(NewMessage(RoleUser, "x"), NewMessage(RoleDeveloper, "dev")); err == nil {
		t.Fatal("expected error for non-system first message")
	}
	if _, err := NewConversation(NewMessage(RoleSystem, "x"), NewMessage(RoleUser, "dev")); err == nil {
		t.Fatal("expected error for non-developer second message")
	}
}

func TestAppendReturnsIndex(t *testing.T) {
	c := newTestConversation(t)
	if i := c.Append(NewMessage(RoleUser, "hi")); i != 2 {
		t.Fatalf("Append index = %d, want 2", i)
	}
	if i := c.Append(NewMessage(RoleAssistant, "hello")); i != 3 {
		t.Fatalf("Append index = %d, want 3", i)
	}
	if text, _ := c.At(2).Text(); text != "hi" {
		t.Fatalf("At(2) text = %q", text)
	}
}

func TestMessagesIsACopy(t *testing.T) {
	c := newTestConversation(t)
	c.Append(NewMessage(RoleUser, "hi"))

	msgs := c.Messages()
	msgs[2].Channel = "tampered"
	msgs[2].Content[0] = TextContent{Text: "tampered"}

	got := c.At(2)
	if got.Channel != "" {
		t.Fatalf("store was mutated through copy: channel %q", got.Channel)
	}
	if text, _ := got.Text(); text != "hi" {
		t.Fatalf("store content was mutated through copy: %q", text)
	}
}

func TestMessageBuildersAndText(t *testing.T) {
	m := NewMessage(RoleTool, "result").
		WithAuthorName("functions.read_file").
		WithRecipient("assistant").
		WithChannel("commentary").
		WithContentType("<|constrain|>json")

	if m.AuthorName != "functions.read_file" || m.Recipient != "assistant" || m.Channel != "commentary" {
		t.Fatalf("builders not applied: %+v", m)
	}
	if m.ContentType != "<|constrain|>json" {
		t.Fatalf("content type = %q", m.ContentType)
	}
	if text, ok := m.Text(); !ok || text != "result" {
		t.Fatalf("Text() = %q, %v", text, ok)
	}

	empty := Message{Role: RoleAssistant}
	if _, ok := empty.Text(); ok {
		t.Fatal("message without content should have no text")
	}
}
