package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/videoroom/internal/logger"
	"github.com/nkiryanov/videoroom/internal/models"
	"github.com/nkiryanov/videoroom/internal/repository/postgres"
	"github.com/nkiryanov/videoroom/internal/service/registration"
	"github.com/nkiryanov/videoroom/internal/testutil"
)

func doRequest(t *testing.T, method string, url string, contentType string, body io.Reader) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp, string(b)
}

func signupForm(email string) io.Reader {
	return strings.NewReader(url.Values{"email": {email}}.Encode())
}

func Test_RegistrationHandlers(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Run http server with production registration service in transaction
	withTx := func(dbpool *pgxpool.Pool, t *testing.T, cfg registration.Config, fn func(url string, s *registration.Service)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			s, err := registration.New(cfg, postgres.NewStorage(tx), nil, nil, logger.NewNoOpLogger())
			require.NoError(t, err, "registration service starting error")

			srv := httptest.NewServer(NewRouter(s, logger.NewNoOpLogger()))
			defer srv.Close()

			fn(srv.URL, s)
		})
	}

	t.Run("status ok", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, _ *registration.Service) {
			resp, body := doRequest(t, http.MethodGet, url+"/status", "", nil)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
			require.JSONEq(t, `{"status": "OK"}`, body)
		})
	})

	t.Run("signup ok", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, _ *registration.Service) {
			resp, body := doRequest(t, http.MethodPost, url+"/signup", "application/x-www-form-urlencoded", signupForm("a@example.com"))

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Empty(t, body, "signup response body has to be empty")
		})
	})

	t.Run("signup without email", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, _ *registration.Service) {
			resp, body := doRequest(t, http.MethodPost, url+"/signup", "application/x-www-form-urlencoded", strings.NewReader("name=nk"))

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {"email": "This field is required"}
				}`, body)
		})
	})

	t.Run("signup with empty email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			mailer := &recordMailer{email: "unset"}
			s, err := registration.New(registration.Config{}, postgres.NewStorage(tx), mailer, nil, nil)
			require.NoError(t, err)
			srv := httptest.NewServer(NewRouter(s, logger.NewNoOpLogger()))
			defer srv.Close()

			resp, body := doRequest(t, http.MethodPost, srv.URL+"/signup", "application/x-www-form-urlencoded", signupForm(""))

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Empty(t, body)
			require.Equal(t, "", mailer.email, "token has to be issued for the empty email")
			require.NotEmpty(t, mailer.token)
		})
	})

	t.Run("signup wrong method", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, _ *registration.Service) {
			resp, body := doRequest(t, http.MethodGet, url+"/signup", "", nil)

			require.Equalf(t, http.StatusMethodNotAllowed, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("signup check ok", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, s *registration.Service) {
			token, err := s.RequestSignup(t.Context(), "a@example.com")
			require.NoError(t, err)

			resp, body := doRequest(t, http.MethodGet, url+"/signup_check/"+token.Token, "", nil)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Empty(t, body)
		})
	})

	t.Run("signup check twice ok", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, s *registration.Service) {
			token, err := s.RequestSignup(t.Context(), "a@example.com")
			require.NoError(t, err)

			first, _ := doRequest(t, http.MethodGet, url+"/signup_check/"+token.Token, "", nil)
			second, _ := doRequest(t, http.MethodGet, url+"/signup_check/"+token.Token, "", nil)

			require.Equal(t, http.StatusOK, first.StatusCode)
			require.Equal(t, http.StatusOK, second.StatusCode, "token is reusable until expiry")
		})
	})

	t.Run("signup check twice single use", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{SingleUse: true}, func(url string, s *registration.Service) {
			token, err := s.RequestSignup(t.Context(), "a@example.com")
			require.NoError(t, err)

			first, _ := doRequest(t, http.MethodGet, url+"/signup_check/"+token.Token, "", nil)
			second, _ := doRequest(t, http.MethodGet, url+"/signup_check/"+token.Token, "", nil)

			require.Equal(t, http.StatusOK, first.StatusCode)
			require.Equal(t, http.StatusNotFound, second.StatusCode, "single use token rejected on second check")
		})
	})

	t.Run("signup check expired", func(t *testing.T) {
		var shift atomic.Int64
		cfg := registration.Config{Now: func() time.Time { return time.Now().Add(time.Duration(shift.Load())) }}
		withTx(pg.Pool, t, cfg, func(url string, s *registration.Service) {
			token, err := s.RequestSignup(t.Context(), "a@example.com")
			require.NoError(t, err)

			shift.Store(int64(901 * time.Second))
			resp, body := doRequest(t, http.MethodGet, url+"/signup_check/"+token.Token, "", nil)

			require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("signup check unknown", func(t *testing.T) {
		withTx(pg.Pool, t, registration.Config{}, func(url string, _ *registration.Service) {
			resp, body := doRequest(t, http.MethodGet, url+"/signup_check/nonexistent-token", "", nil)

			require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Registration token not found"
				}`, body)
		})
	})

	t.Run("signup then check mailed token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			mailer := &recordMailer{}
			s, err := registration.New(registration.Config{}, postgres.NewStorage(tx), mailer, nil, nil)
			require.NoError(t, err)
			srv := httptest.NewServer(NewRouter(s, logger.NewNoOpLogger()))
			defer srv.Close()

			resp, _ := doRequest(t, http.MethodPost, srv.URL+"/signup", "application/x-www-form-urlencoded", signupForm("a@example.com"))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, "a@example.com", mailer.email, "token has to be sent to signed up email")

			resp, body := doRequest(t, http.MethodGet, srv.URL+"/signup_check/"+mailer.token, "", nil)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})
}

type recordMailer struct {
	email string
	token string
}

func (m *recordMailer) SendRegToken(_ context.Context, email string, token string) error {
	m.email, m.token = email, token
	return nil
}

// Stub service for failure paths
type stubRegistration struct {
	token models.RegToken
	ok    bool
	err   error
}

func (s stubRegistration) RequestSignup(context.Context, string) (models.RegToken, error) {
	return s.token, s.err
}

func (s stubRegistration) CheckSignup(context.Context, string) (bool, error) {
	return s.ok, s.err
}

func Test_RegistrationHandlersStoreFailure(t *testing.T) {
	srv := httptest.NewServer(NewRouter(stubRegistration{err: errors.New("db is down")}, logger.NewNoOpLogger()))
	t.Cleanup(srv.Close)

	t.Run("signup", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/signup", "application/x-www-form-urlencoded", signupForm("a@example.com"))

		require.Equalf(t, http.StatusInternalServerError, resp.StatusCode, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"error": "service_error", "message": "Internal server error"}`, body)
	})

	t.Run("signup check", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, srv.URL+"/signup_check/any", "", nil)

		require.Equalf(t, http.StatusInternalServerError, resp.StatusCode, "not expected code. Body: %s", body)
	})

	t.Run("status does not depend on store", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, srv.URL+"/status", "", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.JSONEq(t, `{"status": "OK"}`, body)
	})
}
