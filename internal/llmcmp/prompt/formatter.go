package prompt

import (
	"fmt"
	"strings"

	"github.com/longkey1/llmcmp/internal/llmcmp"
)

// Formatted is a prompt ready to be submitted.
type Formatted struct {
	Text         string
	TemplateName string
	// Models requested by the template, if any.
	Models []llmcmp.ModelIdentity
}

// FormatMessage expands the named template with message as {{input}} and
// args as extra "key:value" placeholders. Without a template the message
// is returned unchanged.
func FormatMessage(message string, promptName string, promptDirs []string, args []string) (*Formatted, error) {
	if promptName == "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("template arguments require --prompt")
		}
		return &Formatted{Text: message}, nil
	}

	path, err := Find(promptName, promptDirs)
	if err != nil {
		return nil, err
	}
	tmpl, err := LoadPrompt(path)
	if err != nil {
		return nil, fmt.Errorf("error loading prompt file: %v", err)
	}

	argMap, err := processArgs(args)
	if err != nil {
		return nil, fmt.Errorf("error processing arguments: %v", err)
	}
	argMap["input"] = message

	pairs := make([]string, 0, len(argMap)*2)
	for key, value := range argMap {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	r := strings.NewReplacer(pairs...)
	system := strings.TrimSpace(r.Replace(tmpl.System))
	user := strings.TrimSpace(r.Replace(tmpl.User))

	models := make([]llmcmp.ModelIdentity, 0, len(tmpl.Models))
	for _, m := range tmpl.Models {
		id, err := llmcmp.ParseModelIdentity(m)
		if err != nil {
			return nil, fmt.Errorf("invalid model format in prompt template: %w", err)
		}
		models = append(models, id)
	}

	text := user
	if system != "" {
		text = fmt.Sprintf("System: %s\n\nUser: %s", system, user)
	}
	return &Formatted{Text: text, TemplateName: promptName, Models: models}, nil
}

// processArgs parses "key:value" arguments. A value may contain escaped
// colons (\:) and quotes (\").
func processArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if len(arg) >= 2 && strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
			arg = arg[1 : len(arg)-1]
		}

		key, value, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("invalid argument format: %s. Expected format: key:value", arg)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid argument format: %s. Key cannot be empty", arg)
		}
		if key == "input" {
			return nil, fmt.Errorf("'input' is a reserved keyword and cannot be used as a key")
		}

		value = strings.TrimSpace(value)
		value = strings.ReplaceAll(value, `\:`, ":")
		value = strings.ReplaceAll(value, `\"`, `"`)
		result[key] = value
	}
	return result, nil
}
