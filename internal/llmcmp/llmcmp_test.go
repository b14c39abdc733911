package llmcmp

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseModelString(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantProvider string
		wantLabel    string
		wantErr      bool
	}{
		{
			name:         "valid openai model",
			input:        "openai:GPT-4o",
			wantProvider: "openai",
			wantLabel:    "GPT-4o",
		},
		{
			name:         "label with spaces and dashes",
			input:        "azure:GPT-4.1 -mini",
			wantProvider: "azure",
			wantLabel:    "GPT-4.1 -mini",
		},
		{
			name:         "label with colon",
			input:        "openai:o1:2024-12-17",
			wantProvider: "openai",
			wantLabel:    "o1:2024-12-17",
		},
		{
			name:         "with whitespace",
			input:        " openai : GPT-4o ",
			wantProvider: "openai",
			wantLabel:    "GPT-4o",
		},
		{
			name:    "missing colon",
			input:   "openai-GPT-4o",
			wantErr: true,
		},
		{
			name:    "empty provider",
			input:   ":GPT-4o",
			wantErr: true,
		},
		{
			name:    "empty label",
			input:   "openai:",
			wantErr: true,
		},
		{
			name:    "dash in provider",
			input:   "open-ai:GPT-4o",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, label, err := ParseModelString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseModelString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if provider != tt.wantProvider {
				t.Errorf("ParseModelString() provider = %v, want %v", provider, tt.wantProvider)
			}
			if label != tt.wantLabel {
				t.Errorf("ParseModelString() label = %v, want %v", label, tt.wantLabel)
			}
		})
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	for _, entry := range DefaultCatalog() {
		id := entry.Identity()
		got, err := ParseKey(id.Key())
		if err != nil {
			t.Fatalf("ParseKey(%q) error = %v", id.Key(), err)
		}
		if got != id {
			t.Errorf("ParseKey(%q) = %+v, want %+v", id.Key(), got, id)
		}
	}

	for _, bad := range []string{"", "-GPT", "openai-", "openai"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) expected error", bad)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("submit: %w", ErrAuthExpired), "Your session has expired. Please sign in again."},
		{&StatusError{StatusCode: 500}, "Something went wrong."},
		{errors.New("boom"), "Something went wrong."},
		{ErrBusy, "Please wait for the current responses to arrive."},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	if !errors.Is(&StatusError{StatusCode: 502}, ErrTransport) {
		t.Error("StatusError should match ErrTransport")
	}
}
