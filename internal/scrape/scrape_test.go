package scrape

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobPage = `<!doctype html>
<html>
<head><title>Senior Go Engineer | Acme</title><style>body{color:red}</style></head>
<body>
<nav><a href="/">Home</a> <a href="/jobs">Jobs</a></nav>
<header>Acme Careers</header>
<div class="job-description">
  <h1>Senior Go Engineer</h1>
  <p>We are looking for an engineer to join the platform team.</p>
  <h2>Responsibilities</h2>
  <ul><li>Build and operate Go services</li><li>Own the PostgreSQL schema</li></ul>
  <h2>Requirements</h2>
  <ul><li>5+ years of experience with distributed systems</li><li>Strong skills in Go</li></ul>
</div>
<script>trackPageView()</script>
<footer>Copyright Acme</footer>
</body>
</html>`

func TestCleanExtractsJobContainer(t *testing.T) {
	title, text, err := Clean(jobPage, DefaultMaxChars)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer | Acme", title)
	assert.Contains(t, text, "Responsibilities")
	assert.Contains(t, text, "Build and operate Go services")
	assert.NotContains(t, text, "trackPageView")
	assert.NotContains(t, text, "Copyright Acme")
	assert.NotContains(t, text, "Acme Careers")
	assert.NotContains(t, text, "\n\n\n")
}

func TestCleanCapsLength(t *testing.T) {
	page := "<html><body><main><p>" + strings.Repeat("word ", 500) + "</p></main></body></html>"
	_, text, err := Clean(page, 120)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(text)), 120)
}

func TestLooksLikeJobPosting(t *testing.T) {
	assert.False(t, LooksLikeJobPosting("Responsibilities and requirements"), "too short")
	assert.False(t, LooksLikeJobPosting(strings.Repeat("lorem ipsum dolor ", 20)), "no keywords")
	assert.True(t, LooksLikeJobPosting(strings.Repeat("lorem ipsum ", 10)+" requirements and prior experience"))
}

func TestFetchJobDescription(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(jobPage))
	}))
	defer server.Close()

	posting, err := NewFetcher(time.Second, 0, WithPrivateNetworks()).FetchJobDescription(context.Background(), server.URL+"/jobs/1")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/jobs/1", posting.URL)
	assert.Equal(t, "Senior Go Engineer | Acme", posting.Title)
	assert.Contains(t, posting.Text, "Strong skills in Go")
	assert.Contains(t, gotUA, "Mozilla")
}

func TestFetchJobDescriptionRejectsNonPosting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Nothing to see here.</p></body></html>"))
	}))
	defer server.Close()

	_, err := NewFetcher(time.Second, 0, WithPrivateNetworks()).FetchJobDescription(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrNotJobPosting)
}

func TestFetchJobDescriptionErrors(t *testing.T) {
	f := NewFetcher(time.Second, 0, WithPrivateNetworks())

	_, err := f.FetchJobDescription(context.Background(), "ftp://example.com/job")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = f.FetchJobDescription(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()
	_, err = f.FetchJobDescription(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 404")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchJobDescriptionRefusesNonPublicAddresses(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(jobPage))
	}))
	defer server.Close()

	f := NewFetcher(time.Second, 0)
	for _, target := range []string{
		server.URL + "/admin",
		"http://10.0.0.8/jobs",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]:8080/",
		"http://0.0.0.0/",
	} {
		_, err := f.FetchJobDescription(context.Background(), target)
		assert.ErrorIs(t, err, ErrInvalidURL, target)
	}
	assert.Zero(t, hits)
}

func TestFetchJobDescriptionRefusesHostnameResolvingToLoopback(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(jobPage))
	}))
	defer internal.Close()

	// localhost passes the literal check, so the dial hook has to catch it.
	target := strings.Replace(internal.URL, "127.0.0.1", "localhost", 1)
	_, err := NewFetcher(time.Second, 0).FetchJobDescription(context.Background(), target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestBlockedIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "127.0.0.1", want: true},
		{ip: "10.1.2.3", want: true},
		{ip: "192.168.0.10", want: true},
		{ip: "172.16.5.4", want: true},
		{ip: "169.254.169.254", want: true},
		{ip: "100.64.0.1", want: true},
		{ip: "::1", want: true},
		{ip: "fe80::1", want: true},
		{ip: "0.0.0.0", want: true},
		{ip: "93.184.216.34", want: false},
		{ip: "2606:4700::1111", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, blockedIP(net.ParseIP(tt.ip)))
		})
	}
}
