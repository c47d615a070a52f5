package core

import (
	"net/mail"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(strict bool) *EmailRenderer {
	fsys := fstest.MapFS{
		"email/_base.txt":     {Data: []byte(`{{template "content" .}}-- {{.AppName}}`)},
		"email/_base.gohtml":  {Data: []byte(`<p>{{template "content" .}}</p><a href="{{.FrontendBaseURL}}">{{.AppName}}</a>`)},
		"email/hello.txt":     {Data: []byte(`{{define "content"}}Hi {{.Data.Name}} {{end}}`)},
		"email/hello.gohtml":  {Data: []byte(`{{define "content"}}Hi <b>{{.Data.Name}}</b>{{end}}`)},
		"email/text_only.txt": {Data: []byte(`{{define "content"}}Plain {{.Data}} {{end}}`)},
		"email/README.md":     {Data: []byte(`ignored`)},
	}
	conf := &Config{AppName: "TutorDesk", FrontendBaseURL: "http://localhost:3000", TestMode: strict}
	return NewEmailRenderer(fsys, "email", conf)
}

func TestEmailRenderer_Render(t *testing.T) {
	r := newTestRenderer(true)
	to := []mail.Address{{Name: "Jane", Address: "jane@example.com"}}

	t.Run("text & html", func(t *testing.T) {
		m := &EmailMessage{To: to, TemplateName: "hello", TemplateData: map[string]string{"Name": "Jane"}}
		require.NoError(t, r.Render(m))
		assert.Equal(t, "Hi Jane -- TutorDesk", m.TextContent)
		assert.Equal(t, `<p>Hi <b>Jane</b></p><a href="http://localhost:3000">TutorDesk</a>`, m.HTMLContent)
		assert.True(t, m.HasRecipients())
		assert.True(t, m.HasContent())
	})

	t.Run("html escaping", func(t *testing.T) {
		m := &EmailMessage{To: to, TemplateName: "hello", TemplateData: map[string]string{"Name": "<script>"}}
		require.NoError(t, r.Render(m))
		assert.Contains(t, m.HTMLContent, "&lt;script&gt;")
		assert.Contains(t, m.TextContent, "<script>")
	})

	t.Run("text only", func(t *testing.T) {
		m := &EmailMessage{To: to, TemplateName: "text_only", TemplateData: "text"}
		require.NoError(t, r.Render(m))
		assert.Equal(t, "Plain text -- TutorDesk", m.TextContent)
		assert.Empty(t, m.HTMLContent)
	})

	t.Run("body string", func(t *testing.T) {
		m := &EmailMessage{To: to, BodyStr: "raw body"}
		require.NoError(t, r.Render(m))
		assert.Equal(t, "raw body", m.TextContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		m := &EmailMessage{To: to, TemplateName: "lol"}
		require.NoError(t, r.Render(m))
		assert.False(t, m.HasContent())
	})

	t.Run("missing key (strict)", func(t *testing.T) {
		m := &EmailMessage{To: to, TemplateName: "hello", TemplateData: map[string]string{}}
		assert.Error(t, r.Render(m))
	})
}
