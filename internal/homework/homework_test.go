package homework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want error
		n    int
	}{
		{name: "not an object", raw: []any{}, want: ErrTypeMismatch},
		{name: "null", raw: nil, want: ErrTypeMismatch},
		{name: "empty object", raw: map[string]any{}, want: ErrEmptyResponse},
		{name: "missing homeworks", raw: map[string]any{"current_date": 1}, want: ErrMissingField},
		{name: "homeworks not a list", raw: map[string]any{"homeworks": "nope"}, want: ErrTypeMismatch},
		{name: "empty list", raw: map[string]any{"homeworks": []any{}}, n: 0},
		{name: "two items", raw: decode(t, `{"homeworks":[{"homework_name":"a","status":"approved"},{}]}`), n: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ValidateResponse(tt.raw)
			if tt.want != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
				assert.Nil(t, items)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.n)
		})
	}
}

func TestValidateResponseOrder(t *testing.T) {
	// A non-object wins over every other rule.
	_, err := ValidateResponse("{}")
	assert.Equal(t, KindTypeMismatch, KindOf(err))
}

func TestFormatStatusKnownStatuses(t *testing.T) {
	for _, st := range []Status{StatusApproved, StatusReviewing, StatusRejected} {
		for _, lang := range []Language{LangEN, LangRU} {
			t.Run(string(lang)+"/"+string(st), func(t *testing.T) {
				item := map[string]any{"homework_name": "hw_api_final", "status": string(st)}
				got, err := FormatStatus(item, lang)
				require.NoError(t, err)

				verdict, ok := lang.Verdict(st)
				require.True(t, ok)
				assert.Contains(t, got, `"hw_api_final"`)
				assert.True(t, strings.HasSuffix(got, verdict))
			})
		}
	}
}

func TestFormatStatusExactText(t *testing.T) {
	got, err := FormatStatus(map[string]any{"homework_name": "hw1", "status": "reviewing"}, LangEN)
	require.NoError(t, err)
	assert.Equal(t, `Changed review status of "hw1". Work taken for review by a reviewer.`, got)
}

func TestFormatStatusErrors(t *testing.T) {
	tests := []struct {
		name string
		item any
		want error
	}{
		{name: "not an object", item: "hw1", want: ErrTypeMismatch},
		{name: "no name", item: map[string]any{"status": "approved"}, want: ErrMissingField},
		{name: "null name", item: map[string]any{"homework_name": nil, "status": "approved"}, want: ErrMissingField},
		{name: "no status", item: map[string]any{"homework_name": "hw1"}, want: ErrMissingField},
		{name: "name not a string", item: map[string]any{"homework_name": 7.0, "status": "approved"}, want: ErrTypeMismatch},
		{name: "unknown status", item: map[string]any{"homework_name": "hw1", "status": "lost"}, want: ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatStatus(tt.item, LangEN)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, got)
		})
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("poll: %w", &Error{Kind: KindConnectivity, Msg: "endpoint returned HTTP 503", StatusCode: 503})
	assert.True(t, errors.Is(err, ErrConnectivity))
	assert.False(t, errors.Is(err, ErrDelivery))
	assert.Equal(t, KindConnectivity, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	cause := errors.New("chat not found")
	de := DeliveryError(cause)
	assert.True(t, errors.Is(de, ErrDelivery))
	assert.True(t, errors.Is(de, cause))
	assert.Nil(t, DeliveryError(nil))
}

func TestCurrentDate(t *testing.T) {
	v, ok := CurrentDate(decode(t, `{"homeworks":[],"current_date":1700000000}`))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), v)

	_, ok = CurrentDate(map[string]any{"homeworks": []any{}})
	assert.False(t, ok)
	_, ok = CurrentDate(map[string]any{"current_date": 1.5})
	assert.False(t, ok)
}

func TestDiagnostic(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "Program failure: boom", LangEN.Diagnostic(err))
	assert.Equal(t, "Сбой в работе программы: boom", LangRU.Diagnostic(err))
	assert.Equal(t, LangRU, ParseLanguage(" RU "))
	assert.Equal(t, LangEN, ParseLanguage("fr"))
}

func TestFetcherSendsWindowAndAuth(t *testing.T) {
	var gotAuth, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":1700000100}`))
	}))
	defer srv.Close()

	f, err := NewFetcher(FetcherConfig{Endpoint: srv.URL + "/api/user_api/homework_statuses/", Token: "secret", Timeout: time.Second})
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background(), 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "OAuth secret", gotAuth)
	assert.Equal(t, "1700000000", gotFrom)

	items, err := ValidateResponse(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestFetcherNon200IsConnectivityError(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusUnauthorized} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			f, err := NewFetcher(FetcherConfig{Endpoint: srv.URL, Token: "t"})
			require.NoError(t, err)

			raw, err := f.Fetch(context.Background(), 0)
			require.Error(t, err)
			assert.Nil(t, raw)
			assert.True(t, errors.Is(err, ErrConnectivity))

			var he *Error
			require.True(t, errors.As(err, &he))
			assert.Equal(t, code, he.StatusCode)
		})
	}
}

func TestFetcherInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	f, err := NewFetcher(FetcherConfig{Endpoint: srv.URL, Token: "t"})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrTypeMismatch), "got %v", err)
}

func TestFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f, err := NewFetcher(FetcherConfig{Endpoint: url, Token: "t", Timeout: time.Second})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrConnectivity), "got %v", err)
}

func TestNewFetcherValidation(t *testing.T) {
	_, err := NewFetcher(FetcherConfig{Endpoint: "https://example.test/", Token: " "})
	assert.Error(t, err)
	_, err = NewFetcher(FetcherConfig{Endpoint: "not a url", Token: "t"})
	assert.Error(t, err)
}
