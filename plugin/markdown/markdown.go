// Package markdown renders mission reports (Markdown produced by the
// research engine) to HTML.
package markdown

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Service renders Markdown to HTML.
type Service interface {
	RenderHTML(source string) (string, error)
}

type service struct {
	md goldmark.Markdown
}

// Option configures the markdown service.
type Option func(*options)

type options struct {
	hardWraps bool
}

// WithHardWraps renders single newlines as <br>.
func WithHardWraps() Option {
	return func(o *options) {
		o.hardWraps = true
	}
}

// NewService creates a markdown rendering service with GFM extensions
// enabled, matching the tables and task lists the engine emits.
func NewService(opts ...Option) Service {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rendererOpts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
	}
	if o.hardWraps {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithHardWraps()))
	}

	return &service{md: goldmark.New(rendererOpts...)}
}

func (s *service) RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(source), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return buf.String(), nil
}
