package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loanRequest struct {
	CustomerID int64  `json:"customer_id"`
	LoanAmount string `json:"loan_amount"`
	Tenure     int    `json:"tenure"`
}

func compress(t *testing.T, s string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return &buf
}

func decompress(t *testing.T, r io.Reader) []byte {
	t.Helper()

	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer zr.Close()

	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	return b
}

// loanEcho разбирает заявку и отвечает её полями, как это делает обработчик /create-loan.
func loanEcho(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Encoding"), "request encoding must be consumed")

		var req loanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp, _ := json.Marshal(map[string]any{
			"customer_id": req.CustomerID,
			"loan_amount": req.LoanAmount,
			"tenure":      req.Tenure,
		})
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(resp)))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(resp)
	}
}

func TestGzipMiddleware(t *testing.T) {
	const payload = `{"customer_id":7,"loan_amount":"250000.50","tenure":24}`

	tests := []struct {
		name           string
		compressBody   bool
		acceptEncoding string
		wantGzip       bool
	}{
		{name: "plain request, plain response"},
		{name: "plain request, gzip response", acceptEncoding: "gzip, deflate, br", wantGzip: true},
		{name: "gzip request, plain response", compressBody: true},
		{name: "gzip request, gzip response", compressBody: true, acceptEncoding: "gzip", wantGzip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(payload)
			if tt.compressBody {
				body = compress(t, payload)
			}

			req := httptest.NewRequest(http.MethodPost, "/create-loan", body)
			req.Header.Set("Content-Type", "application/json")
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			rec := httptest.NewRecorder()
			GzipMiddleware(loanEcho(t)).ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()

			require.Equal(t, http.StatusCreated, res.StatusCode)
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

			var raw []byte
			if tt.wantGzip {
				assert.Equal(t, "gzip", res.Header.Get("Content-Encoding"))
				assert.Empty(t, res.Header.Get("Content-Length"), "length of the uncompressed body must not leak")
				raw = decompress(t, res.Body)
			} else {
				assert.Empty(t, res.Header.Get("Content-Encoding"))
				var err error
				raw, err = io.ReadAll(res.Body)
				require.NoError(t, err)
			}

			var got loanRequest
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, loanRequest{CustomerID: 7, LoanAmount: "250000.50", Tenure: 24}, got)
		})
	}
}

func TestGzipMiddleware_BrokenRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/create-loan", strings.NewReader(`{"customer_id":7}`))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	GzipMiddleware(loanEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGzipMiddleware_TruncatedRequestBody(t *testing.T) {
	full := compress(t, `{"customer_id":7,"loan_amount":"100000","tenure":12}`).Bytes()

	req := httptest.NewRequest(http.MethodPost, "/create-loan", bytes.NewReader(full[:len(full)/2]))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	GzipMiddleware(loanEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
