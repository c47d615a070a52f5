package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutordesk/core"
)

// strictBinder decodes JSON bodies, rejecting unknown fields & trailing data.
type strictBinder struct{}

var _ echo.Binder = (*strictBinder)(nil)

func (b *strictBinder) Bind(i interface{}, ctx echo.Context) error {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request body cannot be empty")
	}
	if ct := req.Header.Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		return echo.ErrUnsupportedMediaType
	}

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(i); err != nil {
		var msg string
		switch e := err.(type) {
		case *json.UnmarshalTypeError:
			msg = fmt.Sprintf("%s: expected %v, got %v", e.Field, e.Type, e.Value)
		case *json.SyntaxError:
			msg = fmt.Sprintf("malformed JSON at offset %d: %v", e.Offset, e.Error())
		default:
			msg = strings.TrimPrefix(err.Error(), "json: ")
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
	}
	if dec.More() {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must contain a single JSON object")
	}
	return nil
}

// intQueryParam parses the query param `name`, defaulting to `def` when missing.
func intQueryParam(ctx echo.Context, name string, def int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewFieldValidationError(name, errors.Errorf("%s must be an integer", name))
	}
	return val, nil
}
