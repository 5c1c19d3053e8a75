package jobsource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postingHTML = `<!doctype html>
<html>
<head><title>Careers</title><style>body { color: red; }</style></head>
<body>
  <nav>Home | Jobs | About</nav>
  <div class="job-description">
    <h1>Backend Developer</h1>
    <p>We   build   payment
       systems in Go.</p>
    <script>track()</script>
  </div>
  <footer>© Example Corp</footer>
</body>
</html>`

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "job posting selector",
			html: postingHTML,
			want: "Backend Developer\nWe build payment\nsystems in Go.",
		},
		{
			name: "main fallback",
			html: `<html><body><header>Logo</header><main><p>Data Scientist role</p></main><aside>x</aside></body></html>`,
			want: "Data Scientist role",
		},
		{
			name: "body fallback",
			html: `<html><body><p>ML Researcher</p><footer>legal</footer></body></html>`,
			want: "ML Researcher",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, postingHTML)
	}))
	defer srv.Close()

	l := New(nil)
	l.HTTPClient = srv.Client()

	got, err := l.Load(context.Background(), Source{URL: srv.URL + "/jobs/1", Text: "ignored"})
	require.NoError(t, err)
	assert.Contains(t, got, "Backend Developer")
	assert.NotContains(t, got, "Example Corp")
	assert.NotContains(t, got, "track()")
}

func TestLoadURLErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Load(context.Background(), Source{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status")

	_, err = Load(context.Background(), Source{URL: "ftp://example.com/job"})
	require.Error(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body><nav>only nav</nav></body></html>`)
	}))
	defer empty.Close()

	_, err = Load(context.Background(), Source{URL: empty.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jd.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Frontend Developer\n"), 0o600))

	got, err := Load(context.Background(), Source{File: path, Text: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "Frontend Developer", got)

	got, err = Load(context.Background(), Source{Text: " AI Engineer "})
	require.NoError(t, err)
	assert.Equal(t, " AI Engineer ", got, "inline text is taken as is")

	_, err = Load(context.Background(), Source{File: filepath.Join(dir, "missing.txt")})
	require.Error(t, err)

	_, err = Load(context.Background(), Source{})
	assert.ErrorIs(t, err, ErrNoSource)
	assert.True(t, Source{}.Empty())
}
