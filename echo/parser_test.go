package echoform_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mazrean/formseq"
	echoform "github.com/mazrean/formseq/echo"
)

func TestExample(t *testing.T) {
	t.Parallel()

	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`
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
--boundary--`))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=boundary")

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var u user
	err := createUserHandler(&u)(c)
	if err != nil {
		t.Fatalf("failed to create user: %s\n", err)
		return
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("status code is wrong: expected: %d, actual: %d\n", http.StatusCreated, rec.Code)
	}

	if u.name != "mazrean" {
		t.Errorf("user name is wrong: expected: mazrean, actual: %s\n", u.name)
	}
	if u.password != "password" {
		t.Errorf("user password is wrong: expected: password, actual: %s\n", u.password)
	}
	if u.icon != "icon contents" {
		t.Errorf("user icon is wrong: expected: icon contents, actual: %s\n", u.icon)
	}
	if u.iconType != "image/png" {
		t.Errorf("user icon type is wrong: expected: image/png, actual: %s\n", u.iconType)
	}
}

func TestFieldsLimit(t *testing.T) {
	t.Parallel()

	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`
--boundary
Content-Disposition: form-data; name="name"

mazrean
--boundary
Content-Disposition: form-data; name="password"

password
--boundary--`))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=boundary")

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var u user
	err := createUserHandler(&u, formseq.WithMaxFields(1))(c)
	if err != nil {
		t.Fatalf("failed to handle request: %s\n", err)
	}

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status code is wrong: expected: %d, actual: %d\n", http.StatusRequestEntityTooLarge, rec.Code)
	}
	if u.name != "mazrean" {
		t.Errorf("user name is wrong: expected: mazrean, actual: %s\n", u.name)
	}
}

func TestNotMultipart(t *testing.T) {
	t.Parallel()

	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`{"name":"mazrean"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	c := e.NewContext(req, httptest.NewRecorder())

	_, err := echoform.NewParser(c)
	if !errors.Is(err, http.ErrNotMultipart) {
		t.Errorf("unexpected error: %v", err)
	}
}

type user struct {
	name     string
	password string
	icon     string
	iconType string
}

func createUserHandler(u *user, options ...formseq.ParserOption) echo.HandlerFunc {
	return func(c echo.Context) error {
		parser, err := echoform.NewParser(c, options...)
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		defer parser.Close()

		parser.Feed()

		for {
			ev, err := parser.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return c.NoContent(http.StatusBadRequest)
			}

			switch ev := ev.(type) {
			case *formseq.FieldEvent:
				switch ev.Name {
				case "name":
					u.name = ev.Value
				case "password":
					u.password = ev.Value
				}
			case *formseq.FileEvent:
				err := saveIcon(u, ev)
				if err != nil {
					return err
				}
			case *formseq.LimitEvent:
				return c.NoContent(http.StatusRequestEntityTooLarge)
			}
		}

		return c.NoContent(http.StatusCreated)
	}
}

func saveIcon(u *user, file *formseq.FileEvent) error {
	defer file.Content.Close()

	sb := strings.Builder{}
	_, err := io.Copy(&sb, file.Content)
	if err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	u.icon = sb.String()
	u.iconType = file.MIMEType

	return nil
}
