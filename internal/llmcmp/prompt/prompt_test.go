package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/longkey1/llmcmp/internal/llmcmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+".toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestFormatMessage_NoTemplate(t *testing.T) {
	got, err := FormatMessage("hello", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &Formatted{Text: "hello"}, got)

	_, err = FormatMessage("hello", "", nil, []string{"lang:go"})
	assert.Error(t, err)
}

func TestFormatMessage_Template(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "review/code", `
description = "Code review"
system = "You review {{lang}} code."
user = "Review this:\n{{input}}"
models = ["openai:GPT-4o", "azure:GPT-35-turbo"]
`)

	got, err := FormatMessage("x := 1", "review/code", []string{dir}, []string{"lang:Go"})
	require.NoError(t, err)
	assert.Equal(t, "System: You review Go code.\n\nUser: Review this:\nx := 1", got.Text)
	assert.Equal(t, "review/code", got.TemplateName)
	assert.Equal(t, []llmcmp.ModelIdentity{
		{Provider: "openai", Label: "GPT-4o"},
		{Provider: "azure", Label: "GPT-35-turbo"},
	}, got.Models)
}

func TestFormatMessage_UserOnlyTemplate(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "tldr", `user = "Summarise: {{input}}"`)

	got, err := FormatMessage("a long text", "tldr.toml", []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Summarise: a long text", got.Text)
	assert.Empty(t, got.Models)
}

func TestFormatMessage_Errors(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "bad-model", `user = "{{input}}"
models = ["gpt"]`)
	writePrompt(t, dir, "ok", `user = "{{input}}"`)

	tests := []struct {
		name   string
		prompt string
		args   []string
	}{
		{"missing template", "absent", nil},
		{"invalid model", "bad-model", nil},
		{"reserved key", "ok", []string{"input:x"}},
		{"malformed arg", "ok", []string{"novalue"}},
		{"empty key", "ok", []string{":value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FormatMessage("m", tt.prompt, []string{dir}, tt.args)
			assert.Error(t, err)
		})
	}
}

func TestProcessArgs(t *testing.T) {
	got, err := processArgs([]string{`"url:http\://example.com"`, ` tone : dry `, `quote:say \"hi\"`})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"url":   "http://example.com",
		"tone":  "dry",
		"quote": `say "hi"`,
	}, got)
}

func TestFindAndList_LaterDirWins(t *testing.T) {
	system := t.TempDir()
	user := t.TempDir()
	writePrompt(t, system, "shared", `user = "system"`)
	writePrompt(t, system, "only/system", `user = "s"`)
	writePrompt(t, user, "shared", `user = "user"`)
	require.NoError(t, os.WriteFile(filepath.Join(user, "README.md"), []byte("x"), 0644))

	path, err := Find("shared", []string{system, user})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(user, "shared.toml"), path)

	templates, err := List([]string{system, user, filepath.Join(user, "absent")})
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "only/system", templates[0].Name)
	assert.Equal(t, "shared", templates[1].Name)
	assert.Equal(t, user, templates[1].Dir)
	assert.Equal(t, []string{system}, templates[1].Shadowed)
}
