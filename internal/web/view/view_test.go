package view_test

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwolthuis/ticklist/assets"
	"github.com/mwolthuis/ticklist/internal/web/view"
)

func TestView_ParseAndRender(t *testing.T) {
	okTests := map[string]struct {
		files map[string]string
		name  string
		data  any
		want  string
	}{
		"base only": {
			files: map[string]string{
				"base.html": `<html>Hello {{ . }}</html>`,
			},
			name: "",
			data: "World!",
			want: `<html>Hello World!</html>`,
		},
		"base and home": {
			files: map[string]string{
				"base.html": `<html>{{template "content" . }}</html>`,
				"home.html": `{{define "content"}}<h1>Hello {{ . }}</h1>{{end}}`,
			},
			name: "home",
			data: "World!",
			want: `<html><h1>Hello World!</h1></html>`,
		},
		"base, home and greeting partial": {
			files: map[string]string{
				"base.html":              `<html>{{template "content" . }}</html>`,
				"home.html":              `{{define "content"}}<h1>{{template "greeting" . }}</h1>{{end}}`,
				"partials/greeting.html": `{{define "greeting"}}Hello {{ . }}{{end}}`,
			},
			name: "home",
			data: "World!",
			want: `<html><h1>Hello World!</h1></html>`,
		},
		"check data is escaped": {
			files: map[string]string{
				"base.html": `<html>{{ . }}</html>`,
			},
			name: "",
			data: "<script>alert('xss')</script>",
			want: `<html>&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;</html>`,
		},
	}

	for name, tc := range okTests {
		t.Run(name, func(t *testing.T) {
			tempFS := tempFilesForTest(t, tc.files)

			v, err := view.Parse(tempFS, tc.name)
			if err != nil {
				t.Fatalf("unexpected error parsing view: %v", err)
			}

			buf := &bytes.Buffer{}
			err = v.Render(buf, tc.data)
			if err != nil {
				t.Fatalf("unexpected error rendering view: %v", err)
			}

			got := buf.String()
			if got != tc.want {
				t.Errorf("got\n%s\nwant\n%s", got, tc.want)
			}
		})
	}

	parseFails := map[string]struct {
		files map[string]string
		name  string
	}{
		"no views": {
			files: map[string]string{},
			name:  "",
		},
		"no base": {
			files: map[string]string{
				"home.html": `<h1>Hello {{ . }}</h1>`,
			},
			name: "",
		},
		"no home": {
			files: map[string]string{
				"base.html":  `<html>{{template "content" . }}</html>`,
				"other.html": `<h1>Hello {{ . }}</h1>`,
			},
			name: "home",
		},
		"filename with disallowed rune": {
			files: map[string]string{
				"base.html": `<html>{{template "content" . }}</html>`,
				"#.html":    `<h1>Hello {{ . }}</h1>`,
			},
			name: "#",
		},
	}

	for name, tc := range parseFails {
		t.Run(name, func(t *testing.T) {
			tempFS := tempFilesForTest(t, tc.files)

			_, err := view.Parse(tempFS, tc.name)
			if err == nil {
				t.Fatalf("expected error, got <nil>")
			}
		})
	}
}

// Test_MemRenderer_AppTemplates parses every embedded app template, so
// template syntax errors are caught by the tests instead of at runtime.
func Test_MemRenderer_AppTemplates(t *testing.T) {
	_, err := view.NewMemRenderer(assets.TemplateFS)
	if err != nil {
		t.Fatalf("failed to parse app templates: %v", err)
	}
}

func Test_MemRenderer_UnknownView(t *testing.T) {
	r, err := view.NewMemRenderer(tempFilesForTest(t, map[string]string{
		"base.html": `<html>{{template "content" . }}</html>`,
		"home.html": `{{define "content"}}<h1>Hello</h1>{{end}}`,
	}))
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, "nope", nil); err == nil {
		t.Fatalf("expected error, got <nil>")
	}
}

func tempFilesForTest(t *testing.T, files map[string]string) fs.FS {
	t.Helper()

	dir, err := os.MkdirTemp("", "ticklist_view_test")
	if err != nil {
		t.Fatalf("failed to create temporary directory for views: %v", err)
	}

	t.Cleanup(func() {
		err := os.RemoveAll(dir)
		if err != nil {
			t.Fatalf("failed to remove temporary directory: %v", err)
		}
	})

	for name, content := range files {
		fn := filepath.Join(dir, name)
		err := os.MkdirAll(filepath.Dir(fn), 0755)
		if err != nil {
			t.Fatalf("failed to create path for temporary file: %v", err)
		}

		err = os.WriteFile(fn, []byte(content), 0644)
		if err != nil {
			t.Fatalf("failed to write temporary file: %v", err)
		}
	}

	return os.DirFS(dir)
}
