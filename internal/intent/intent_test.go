package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codingassistant/assistant/internal/intent"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    intent.Intent
		source  intent.Source
	}{
		{"code request", "Write a Python script that prints hello", intent.Code, intent.SourceKeywords},
		{"code with language only", "create a class in java for a bank account", intent.Code, intent.SourceKeywords},
		{"code noun without action", "a bash snippet to list files please", intent.None, intent.SourceKeywords},
		{"language topic", "Tell me about Python generators", intent.None, intent.SourceKeywords},
		{"language comparison", "What's the difference between a Python list and a tuple?", intent.None, intent.SourceKeywords},
		{"two languages", "Compare Java and Ruby for web backends", intent.None, intent.SourceKeywords},
		{"debugging question", "Why is my bash loop slow?", intent.None, intent.SourceKeywords},
		{"teach me", "Can you teach me CSS flexbox?", intent.None, intent.SourceKeywords},
		{"explanation", "Explain how Python decorators work", intent.Documentation, intent.SourceKeywords},
		{"explain code subject", "explain this javascript code to me", intent.Documentation, intent.SourceKeywords},
		{"tutorial", "write a tutorial about goroutines", intent.Documentation, intent.SourceKeywords},
		{"question", "What is a closure?", intent.Documentation, intent.SourceKeywords},
		{"mixed", "explain this code and save a version of it", intent.Mixed, intent.SourceKeywords},
		{"chit chat", "hello there", intent.None, intent.SourceKeywords},
		{"empty", "   ", intent.None, intent.SourceKeywords},
		{"code command", "/code anything at all", intent.Code, intent.SourceCommand},
		{"doc command", "/DOC explain and write code", intent.Documentation, intent.SourceCommand},
		{"docs command", "/docs closures", intent.Documentation, intent.SourceCommand},
		{"unknown command", "/help", intent.None, intent.SourceKeywords},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intent.Classify(tt.message)
			assert.Equal(t, tt.want, got.Intent, "matched: %v", got.Matched)
			assert.Equal(t, tt.source, got.Source)
		})
	}
}

func TestClassify_WholeWordsOnly(t *testing.T) {
	// "decode" contains "code" and "classic" contains "class".
	got := intent.Classify("decode this classic riddle")
	assert.Equal(t, intent.None, got.Intent)
}

func TestUnambiguous(t *testing.T) {
	assert.True(t, intent.Decision{Intent: intent.Code}.Unambiguous())
	assert.True(t, intent.Decision{Intent: intent.Documentation}.Unambiguous())
	assert.False(t, intent.Decision{Intent: intent.Mixed}.Unambiguous())
	assert.False(t, intent.Decision{Intent: intent.None}.Unambiguous())
}

func TestStripCommand(t *testing.T) {
	assert.Equal(t, "write fizzbuzz", intent.StripCommand("/code write fizzbuzz"))
	assert.Equal(t, "closures", intent.StripCommand("  /Doc   closures "))
	assert.Equal(t, "/help me", intent.StripCommand("/help me"))
	assert.Equal(t, "plain text", intent.StripCommand("plain text"))
	assert.Equal(t, "", intent.StripCommand("/code"))
}
