package http

import (
	"mime"
	"net/http"

	"github.com/mazrean/formseq"
)

type Parser struct {
	*formseq.Parser
	req *http.Request
}

// NewParser creates a parser for the multipart/form-data body of req.
// It returns http.ErrNotMultipart or http.ErrMissingBoundary for other requests.
func NewParser(req *http.Request, options ...formseq.ParserOption) (*Parser, error) {
	contentType := req.Header.Get("Content-Type")
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != "multipart/form-data" {
		return nil, http.ErrNotMultipart
	}

	boundary, ok := params["boundary"]
	if !ok {
		return nil, http.ErrMissingBoundary
	}

	return &Parser{
		Parser: formseq.NewParser(boundary, options...),
		req:    req,
	}, nil
}

// Feed feeds the request body, bound to the request context.
func (p *Parser) Feed() *formseq.Settlement {
	return p.Parser.Feed(p.req.Context(), p.req.Body)
}

// Run feeds the request body and calls fn for every event.
func (p *Parser) Run(fn func(formseq.Event) error) error {
	return p.Parser.Run(p.req.Context(), p.req.Body, fn)
}

// Next returns the next event, waiting at most as long as the request lives.
func (p *Parser) Next() (formseq.Event, error) {
	return p.Parser.Next(p.req.Context())
}
