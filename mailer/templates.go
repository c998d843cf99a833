package mailer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrTemplateNotFound   = errors.New("mail template not found")
	ErrMissingPlaceholder = errors.New("mail template placeholder not supplied")
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}\}`)

// Template is one mail layout. HTML is optional; when set the message is
// sent as multipart/alternative.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	HTML    string `yaml:"html,omitempty"`
}

// Message is a rendered template.
type Message struct {
	Subject string
	Body    string
	HTML    string
}

// Templates maps template keys to layouts.
type Templates map[string]Template

// DefaultTemplates returns plain-text layouts for both verification purposes.
func DefaultTemplates() Templates {
	return Templates{
		"AccountActivation": {
			Subject: "Confirm your email address",
			Body: "Hello {{UserName}},\n\n" +
				"Your verification code is {{Otp}}. It expires in 5 minutes.\n\n" +
				"If you did not create an account, you can ignore this message.\n",
		},
		"PasswordReset": {
			Subject: "Your password reset code",
			Body: "Hello {{UserName}},\n\n" +
				"Use the code {{Otp}} to reset your password. It expires in 5 minutes.\n\n" +
				"If you did not request a reset, you can ignore this message.\n",
		},
	}
}

// LoadTemplates decodes a YAML document of the form
//
//	AccountActivation:
//	  subject: ...
//	  body: ...
func LoadTemplates(r io.Reader) (Templates, error) {
	var out Templates
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	for key, tpl := range out {
		if strings.TrimSpace(tpl.Subject) == "" || strings.TrimSpace(tpl.Body) == "" {
			return nil, fmt.Errorf("template %q: subject and body are required", key)
		}
	}
	return out, nil
}

// LoadTemplatesFile reads templates from path.
func LoadTemplatesFile(path string) (Templates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadTemplates(f)
}

// Render looks up key and substitutes placeholders in every part.
func (t Templates) Render(key string, placeholders map[string]string) (Message, error) {
	tpl, ok := t[key]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}

	var missing []string
	replace := func(s string) string {
		return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
			name := placeholderPattern.FindStringSubmatch(m)[1]
			v, ok := placeholders[name]
			if !ok {
				missing = append(missing, name)
				return m
			}
			return v
		})
	}

	msg := Message{
		Subject: replace(tpl.Subject),
		Body:    replace(tpl.Body),
		HTML:    replace(tpl.HTML),
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Message{}, fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(dedupe(missing), ", "))
	}
	return msg, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i > 0 && sorted[i-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}
