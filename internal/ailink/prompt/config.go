package prompt

import "text/template"

// Config describes a prompt's YAML front matter.
type Config struct {
	Slug            string   `yaml:"slug" json:"slug"`
	Description     string   `yaml:"description,omitempty" json:"description,omitempty"`
	Version         string   `yaml:"version,omitempty" json:"version,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxOutputTokens *int     `yaml:"max_output_tokens,omitempty" json:"max_output_tokens,omitempty"`
}

// Prompt is a parsed prompt with its compiled body template.
type Prompt struct {
	Config Config
	Source string
	Body   string

	tmpl *template.Template
}

// Data is the value the body template is executed with.
type Data struct {
	Text string
}
