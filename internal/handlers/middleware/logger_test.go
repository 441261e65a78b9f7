package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type logCall struct {
	level string
	msg   string
	args  []any
}

type recordLogger struct {
	calls []logCall
}

func (l *recordLogger) Info(msg string, v ...any) {
	l.calls = append(l.calls, logCall{level: "info", msg: msg, args: v})
}

func (l *recordLogger) Error(msg string, v ...any) {
	l.calls = append(l.calls, logCall{level: "error", msg: msg, args: v})
}

func TestLoggerMiddleware(t *testing.T) {
	serve := func(t *testing.T, status int, body string) *recordLogger {
		logger := &recordLogger{}

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, err := w.Write([]byte(body))
			require.NoError(t, err, "should write response")
		})

		srv := httptest.NewServer(LoggerMiddleware(logger)(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/signup_check/abc?x=1")
		require.NoError(t, err, "should make request to test server")
		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, status, resp.StatusCode, "unexpected status. Resp: %s", string(got))
		require.Equal(t, body, string(got))

		return logger
	}

	t.Run("log request fields", func(t *testing.T) {
		logger := serve(t, http.StatusTeapot, "hi")

		require.Len(t, logger.calls, 1, "logger should be called once")
		call := logger.calls[0]
		require.Equal(t, "info", call.level)
		require.Equal(t, "got HTTP request", call.msg, "logger should log 'got HTTP request'")
		require.Len(t, call.args, 10, "logger should log 10 fields")
		require.Equal(t, "method", call.args[0])
		require.Equal(t, "GET", call.args[1])
		require.Equal(t, "path", call.args[2])
		require.Equal(t, "/signup_check/abc", call.args[3], "query must not be logged")
		require.Equal(t, "duration", call.args[4])
		require.NotEmpty(t, call.args[5], "duration should not be empty")
		require.Equal(t, "status", call.args[6])
		require.Equal(t, http.StatusTeapot, call.args[7])
		require.Equal(t, "size", call.args[8])
		require.Equal(t, 2, call.args[9], "size should be 2 (length of 'hi')")
	})

	t.Run("server error logged as error", func(t *testing.T) {
		logger := serve(t, http.StatusInternalServerError, "")

		require.Len(t, logger.calls, 1)
		require.Equal(t, "error", logger.calls[0].level)
		require.Equal(t, http.StatusInternalServerError, logger.calls[0].args[7])
	})
}
