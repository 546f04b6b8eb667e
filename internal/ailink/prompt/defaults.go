package prompt

import (
	"embed"
	"fmt"
	"strings"
)

// DefaultSlug names the embedded summary prompt.
const DefaultSlug = "pico-summary"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// Default returns the embedded summary prompt.
func Default() (*Prompt, error) {
	name := "prompts/" + DefaultSlug + ".md"
	data, err := defaultPromptsFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded prompt %s: %w", name, err)
	}
	return Load(name, data)
}

// Resolve loads path when set, otherwise the embedded default.
func Resolve(path string) (*Prompt, error) {
	if path = strings.TrimSpace(path); path != "" {
		return LoadFile(path)
	}
	return Default()
}
