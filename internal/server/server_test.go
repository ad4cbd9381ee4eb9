package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const fixtureRoot = "testdata/site"

func startTestServer(t *testing.T, port int) *Server {
	t.Helper()
	srv, err := Start(context.Background(), fixtureRoot, "127.0.0.1", port, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func TestStart_EphemeralPortResolved(t *testing.T) {
	srv := startTestServer(t, 0)

	assert.NotZero(t, srv.Port())
	assert.Equal(t, "http://localhost:"+strconv.Itoa(srv.Port())+"/", srv.URL())
}

func TestStart_ServesFilesWithoutCaching(t *testing.T) {
	srv := startTestServer(t, 0)

	resp, err := http.Get("http://" + srv.Addr().String() + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, string(body), `id="hello"`)
}

func TestStart_RejectsNonReadMethods(t *testing.T) {
	srv := startTestServer(t, 0)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			req, err := http.NewRequest(method, "http://"+srv.Addr().String()+"/index.html", strings.NewReader("x"))
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
			assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
		})
	}
}

func TestStart_MissingFileIs404(t *testing.T) {
	srv := startTestServer(t, 0)

	resp, err := http.Get("http://" + srv.Addr().String() + "/missing.js")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStart_BindFailure(t *testing.T) {
	// An active listener still owns the port even with SO_REUSEADDR set
	held, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer held.Close()

	port := held.Addr().(*net.TCPAddr).Port

	srv, err := Start(context.Background(), fixtureRoot, "127.0.0.1", port, arbor.NewLogger())
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "failed to bind static server")
}

func TestStart_SecondServerOnSamePortFails(t *testing.T) {
	first := startTestServer(t, 0)

	second, err := Start(context.Background(), fixtureRoot, "127.0.0.1", first.Port(), arbor.NewLogger())
	require.Error(t, err)
	assert.Nil(t, second)
	assert.Contains(t, err.Error(), "failed to bind static server")
}

func TestStop_PortReusableImmediately(t *testing.T) {
	first, err := Start(context.Background(), fixtureRoot, "127.0.0.1", 0, arbor.NewLogger())
	require.NoError(t, err)
	port := first.Port()

	// Leave a connection behind so the socket passes through TIME_WAIT
	resp, err := http.Get(first.URL() + "index.html")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, first.Stop(ctx))

	second, err := Start(context.Background(), fixtureRoot, "127.0.0.1", port, arbor.NewLogger())
	require.NoError(t, err, "port %d should be free right after Stop", port)
	defer second.Stop(context.Background())

	assert.Equal(t, port, second.Port())
}

func TestStop_Idempotent(t *testing.T) {
	srv, err := Start(context.Background(), fixtureRoot, "127.0.0.1", 0, arbor.NewLogger())
	require.NoError(t, err)

	assert.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, srv.Stop(context.Background()))

	_, err = net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	assert.Error(t, err, "listener should be closed after Stop")
}

func TestRecoveryMiddleware_PanicBecomes500(t *testing.T) {
	srv := startTestServer(t, 0)

	handler := srv.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	panicking := &http.Server{Handler: handler}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = panicking.Serve(ln) }()
	defer panicking.Close()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
