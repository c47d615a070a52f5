package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
		// Wait blocks until every message passed to SendMessages so far is sent
		Wait()
	}

	// EmailRenderer renders the templated contents of EmailMessages.
	// Templates are looked up in `dir` of the given FS: `<name>.txt` & `<name>.gohtml`,
	// each one extending `_base.txt` / `_base.gohtml`.
	EmailRenderer struct {
		fsys            fs.FS
		dir             string
		appName         string
		frontendBaseURL string
		strict          bool

		once      sync.Once
		templates tmplCache
		parseErr  error
	}
)

func NewEmailRenderer(fsys fs.FS, dir string, conf *Config) *EmailRenderer {
	return &EmailRenderer{
		fsys:            fsys,
		dir:             dir,
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
		strict:          conf.Debug || conf.TestMode,
	}
}

// Render fills the TextContent and HTMLContent of `m`.
func (r *EmailRenderer) Render(m *EmailMessage) error {
	if m.TemplateName != "" {
		r.once.Do(r.parseTemplates) // only parse once, on first use
		if r.parseErr != nil {
			return r.parseErr
		}
	}
	if err := r.renderText(m); err != nil {
		return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
	}
	if err := r.renderHTML(m); err != nil {
		return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
	}
	return nil
}

func (r *EmailRenderer) contextData(m *EmailMessage) ContextData {
	return ContextData{
		AppName:         r.appName,
		FrontendBaseURL: r.frontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (r *EmailRenderer) getTemplate(name, ext string) (interface{}, bool) {
	cache, ok := r.templates[name]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (r *EmailRenderer) renderText(m *EmailMessage) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := r.getTemplate(m.TemplateName, ".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, r.contextData(m)); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (r *EmailRenderer) renderHTML(m *EmailMessage) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := r.getTemplate(m.TemplateName, ".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, r.contextData(m)); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (r *EmailRenderer) parseTemplates() {
	r.templates = make(tmplCache)

	fps, err := fs.Glob(r.fsys, path.Join(r.dir, "*"))
	if err != nil {
		r.parseErr = errors.Wrap(err, "listing email templates")
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := r.templates[name]
		if !ok {
			entry = make(tmplCacheEntry)
			r.templates[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(r.fsys, path.Join(r.dir, "_base.txt"), fp)
			if err != nil {
				r.parseErr = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			if r.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(r.fsys, path.Join(r.dir, "_base.gohtml"), fp)
			if err != nil {
				r.parseErr = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			if r.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
