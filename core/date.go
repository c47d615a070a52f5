package core

import (
	"reflect"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day (UTC midnight), rendered as YYYY-MM-DD in JSON.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: TruncateDate(t)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		// also accept full timestamps
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return Date{}, err
		}
	}
	return NewDate(t), nil
}

func (d Date) AddMonths(n int) Date {
	return Date{Time: AddMonths(d.Time, n)}
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format(DateLayout))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	s, err := strconv.Unquote(s)
	if err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalParam binds query params (echo.BindUnmarshaler).
func (d *Date) UnmarshalParam(param string) error {
	parsed, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func dateValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(Date); ok {
		return d.Time
	}
	return nil
}
