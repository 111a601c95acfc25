// Package view renders html/template pages wrapped in the shared layout.
package view

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-inventario/auth"
	"github.com/diewo77/go-inventario/i18n"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
	assetCache sync.Map

	langResolver = func(r *http.Request) string { return i18n.LangFromContext(r.Context()) }
)

// partials are parsed alongside every page when present.
var partials = []string{
	"sidebar.html",
	"errors-alert.html",
	"form.html",
	"table.html",
	"search.html",
}

// SetLangResolver lets the host app decide the language of a request.
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the func map for lang.
func Funcs(lang string) template.FuncMap {
	return template.FuncMap{
		"t":  func(code string) string { return i18n.T(lang, code) },
		"tf": func(code string, data map[string]any) string { return i18n.Tf(lang, code, data) },
		"lang": func() string {
			return lang
		},
		"year":  func() int { return time.Now().Year() },
		"asset": versionedAsset,
		"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"mul": func(a, b float64) float64 { return a * b },
		// dict builds a map for sub-templates: {{ template "x" (dict "K" v) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// versionedAsset returns /static/<name>?v=<hash> for cache busting.
func versionedAsset(rel string) string {
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	if v, ok := assetCache.Load(rel); ok {
		return v.(string)
	}
	out := "/static/" + rel
	if b, err := os.ReadFile(filepath.Join("static", rel)); err == nil {
		h := sha1.Sum(b)
		out += fmt.Sprintf("?v=%x", h[:8])
	}
	if os.Getenv("DEV") != "1" {
		assetCache.Store(rel, out)
	}
	return out
}

// SetBaseDir overrides the template directory.
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	baseDir = filepath.Clean(path)
	once = sync.Once{}
}

// ResetForTests clears the template cache and reruns base dir detection.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	baseDir = ""
	once = sync.Once{}
}

func parse(name, lang string) (*template.Template, error) {
	if baseDir == "" {
		once.Do(detectBase)
	}
	mainPath := filepath.Join(baseDir, name)
	if _, err := os.Stat(mainPath); err != nil {
		return nil, err
	}
	files := []string{mainPath}
	layoutPath := filepath.Join(baseDir, "layout.html")
	if fi, err := os.Stat(layoutPath); err == nil && !fi.IsDir() {
		files = append([]string{layoutPath}, files...)
	}
	for _, p := range partials {
		pp := filepath.Join(baseDir, "partials", p)
		if fi, err := os.Stat(pp); err == nil && !fi.IsDir() {
			files = append(files, pp)
		}
	}
	return template.New(filepath.Base(files[0])).Funcs(Funcs(lang)).ParseFiles(files...)
}

// Render writes the template with status 200.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus executes name into a buffer and writes it with status. A
// template error is answered with a 500 and nothing partial is sent.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	lang := langResolver(r)
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	if _, exists := data["Path"]; !exists {
		data["Path"] = r.URL.Path
	}
	data["Lang"] = lang

	key := lang + ":" + name
	devMode := os.Getenv("DEV") == "1"
	var t *template.Template
	if !devMode {
		tplCache.RLock()
		t = tplCache.m[key]
		tplCache.RUnlock()
	}
	if t == nil {
		parsed, err := parse(name, lang)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return err
		}
		t = parsed
		if !devMode {
			tplCache.Lock()
			tplCache.m[key] = t
			tplCache.Unlock()
		}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
