package ginform_test

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mazrean/formseq"
	ginform "github.com/mazrean/formseq/gin"
)

func TestExample(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body string
		code int
		user user
	}{
		"valid form": {
			body: `
--boundary
Content-Disposition: form-data; name="name"

mazrean
--boundary
Content-Disposition: form-data; name="password"

password
--boundary
Content-Disposition: form-data; name="icon"; filename="icon.png"
Content-Type: image/png

icon contents
--boundary--`,
			code: http.StatusCreated,
			user: user{
				name:     "mazrean",
				password: "password",
				icon:     "icon contents",
			},
		},
		"too many headers": {
			body: `
--boundary
Content-Disposition: form-data; name="name"
X-A: a
X-B: b
X-C: c
X-D: d

mazrean
--boundary--`,
			code: http.StatusBadRequest,
		},
		"unexpected end": {
			body: `
--boundary
Content-Disposition: form-data; name="name"

mazr`,
			code: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")

			rec := httptest.NewRecorder()

			var u user
			router := gin.New()
			router.POST("/user", createUserHandler(&u, formseq.WithMaxHeaders(4)))
			router.ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Errorf("status code is wrong: expected: %d, actual: %d\n", tt.code, rec.Code)
				return
			}

			if u != tt.user {
				t.Errorf("user is wrong: expected: %+v, actual: %+v\n", tt.user, u)
			}
		})
	}
}

type user struct {
	name     string
	password string
	icon     string
}

func createUserHandler(u *user, options ...formseq.ParserOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		parser, err := ginform.NewParser(c, options...)
		if err != nil {
			log.Println(err)
			c.Status(http.StatusBadRequest)
			return
		}

		var parsed user
		err = parser.Run(func(ev formseq.Event) error {
			switch ev := ev.(type) {
			case *formseq.FieldEvent:
				switch ev.Name {
				case "name":
					parsed.name = ev.Value
				case "password":
					parsed.password = ev.Value
				}
			case *formseq.FileEvent:
				sb := strings.Builder{}
				_, err := io.Copy(&sb, ev.Content)
				if err != nil {
					return fmt.Errorf("failed to copy: %w", err)
				}
				parsed.icon = sb.String()
			}

			return nil
		})
		if err != nil {
			var faultErr *formseq.FaultError
			if errors.As(err, &faultErr) && faultErr.Origin == formseq.OriginParser {
				log.Println(err)
				c.Status(http.StatusBadRequest)
				return
			}

			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to parse form",
			})
			return
		}

		*u = parsed
		c.Status(http.StatusCreated)
	}
}
