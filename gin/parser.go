package ginform

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mazrean/formseq"
)

type Parser struct {
	*formseq.Parser
	c *gin.Context
}

func NewParser(c *gin.Context, options ...formseq.ParserOption) (*Parser, error) {
	contentType := c.GetHeader("Content-Type")
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != gin.MIMEMultipartPOSTForm {
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
	return p.Parser.Feed(p.c.Request.Context(), p.c.Request.Body)
}

func (p *Parser) Run(fn func(formseq.Event) error) error {
	return p.Parser.Run(p.c.Request.Context(), p.c.Request.Body, fn)
}

func (p *Parser) Next() (formseq.Event, error) {
	return p.Parser.Next(p.c.Request.Context())
}
