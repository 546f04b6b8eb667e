package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Load parses a prompt from Markdown with YAML front matter. The body is a
// text/template executed with Data.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := parseFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("prompt %s has an empty body", source)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}

	tmpl, err := template.New(config.Slug).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("compile prompt %s: %w", source, err)
	}

	return &Prompt{Config: config, Source: source, Body: body, tmpl: tmpl}, nil
}

// LoadFile reads a prompt from disk.
func LoadFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- prompt path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", path, err)
	}
	return Load(path, data)
}

// Render executes the prompt body with text.
func (p *Prompt) Render(text string) (string, error) {
	if p == nil || p.tmpl == nil {
		return "", fmt.Errorf("prompt not loaded")
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, Data{Text: text}); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.Config.Slug, err)
	}
	return buf.String(), nil
}

func parseFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
		first       = true
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case first && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case inFront && strings.TrimSpace(line) == "---":
			inFront = false
		case inFront:
			frontmatter = append(frontmatter, line)
		default:
			body = append(body, line)
		}
		first = false
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}
	if inFront {
		return Config{}, "", fmt.Errorf("unterminated frontmatter")
	}

	var cfg Config
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	return cfg, strings.Join(body, "\n"), nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Slug) == "" {
		return fmt.Errorf("slug is required")
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if cfg.MaxOutputTokens != nil && *cfg.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive")
	}
	return nil
}
