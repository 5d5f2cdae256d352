package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-verifier/config"
)

const testReceiptURL = "https://cash.app/payments/9k2mfx1v0c3q7wz4/receipt"

func testConfig(t *testing.T, body string, code int) *config.Config {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return &config.Config{
		ReceiptBaseURL:     "https://cash.app/payments/",
		ReceiptJSONBaseURL: srv.URL + "/",
		ProviderTimeout:    5 * time.Second,
	}
}

func runVerify(t *testing.T, cfg *config.Config, args ...string) (map[string]any, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	command := newVerifyCommand(cfg)
	command.SetOut(&out)
	command.SetErr(&errOut)
	command.SetArgs(args)

	err := command.Execute()

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return result, err
}

func TestVerifyCommand(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		code        int
		args        []string
		wantType    string
		wantMessage string
		wantErr     bool
	}{
		{
			name:        "verified",
			body:        `{"notes":"Order 42","detail_rows":[{},{},{},{"value":"alice"}]}`,
			code:        http.StatusOK,
			args:        []string{"-u", "alice", "-r", "order 42", testReceiptURL},
			wantType:    "success",
			wantMessage: "Web Receipt Verified Successfully.",
		},
		{
			name:        "missing username",
			code:        http.StatusOK,
			args:        []string{"--reference", "order 42", testReceiptURL},
			wantType:    "error",
			wantMessage: "username is required",
			wantErr:     true,
		},
		{
			name:        "receipt not found",
			code:        http.StatusNotFound,
			args:        []string{"-u", "alice", "-r", "order 42", testReceiptURL},
			wantType:    "error",
			wantMessage: "Failed to verify web receipt, please provide a valid receipt",
			wantErr:     true,
		},
		{
			name:        "unmatched payer",
			body:        `{"notes":"Order 42","detail_rows":[{},{},{},{"value":"bob"}]}`,
			code:        http.StatusOK,
			args:        []string{"-u", "alice", "-r", "order 42", testReceiptURL},
			wantType:    "error",
			wantMessage: "Failed to verify web receipt, Unmatched notes or host.",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := runVerify(t, testConfig(t, tt.body, tt.code), tt.args...)

			if tt.wantErr {
				assert.ErrorIs(t, err, errVerificationFailed)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantType, result["type"])
			assert.Equal(t, tt.wantMessage, result["message"])
		})
	}
}

func TestVerifyCommand_PrintsReceiptData(t *testing.T) {
	result, err := runVerify(t,
		testConfig(t, `{"notes":"rent","detail_rows":[{},{},{},{"value":"alice"}],"amount":"$10"}`, http.StatusOK),
		"-u", "alice", "-r", "rent", testReceiptURL,
	)

	require.NoError(t, err)
	data, ok := result["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "$10", data["amount"])
}

func TestNewVerifier_WithBreaker(t *testing.T) {
	cfg := testConfig(t, `{"notes":"rent","detail_rows":[{},{},{},{"value":"alice"}]}`, http.StatusOK)
	cfg.BreakerEnabled = true
	cfg.BreakerMaxRequests = 1
	cfg.BreakerInterval = time.Minute
	cfg.BreakerTimeout = time.Minute
	cfg.BreakerFailureRatio = 0.5

	result, err := runVerify(t, cfg, "-u", "alice", "-r", "rent", testReceiptURL)

	require.NoError(t, err)
	assert.Equal(t, "success", result["type"])
}
