package echoform

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mazrean/formseq"
)

type Parser struct {
	*formseq.Parser
	c echo.Context
}

func NewParser(c echo.Context, options ...formseq.ParserOption) (*Parser, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != echo.MIMEMultipartForm {
		return nil, http.ErrNotMultipart
	}

	boundary, ok := params["boundary"]
	if !ok {
		return nil, http.ErrMissingBoundary
	}

	return &Parser{
		Parser: formseq.NewParser(boundary, options...),
		c:      c,
	}, nil
}

func (p *Parser) Feed() *formseq.Settlement {
	req := p.c.Request()
	return p.Parser.Feed(req.Context(), req.Body)
}

func (p *Parser) Run(fn func(formseq.Event) error) error {
	req := p.c.Request()
	return p.Parser.Run(req.Context(), req.Body, fn)
}

func (p *Parser) Next() (formseq.Event, error) {
	return p.Parser.Next(p.c.Request().Context())
}
