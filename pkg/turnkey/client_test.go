package turnkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliascm17/turnkey/pkg/stamp"
)

const (
	testOrganizationID = "3f1c8f8e-97a4-40cd-8d36-a4f25ec3c6f5"
	testPrivateKeyID   = "5b3fd915-0b9a-45e8-b0a8-16aa6e7fdca2"
	testActivityID     = "019067f1-0d94-7c3e-8f3d-2e9f1a9c4b11"
)

func TestSignTransactionCompletedOnSubmission(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet()
	tx := newTransferTx(t, wallet.PublicKey())

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		return http.StatusOK, signedActivity(t, wallet.PrivateKey, body)
	}

	client := newTestClient(t, server.URL, func(cfg *Config) {
		cfg.ExamplePublicKey = wallet.PublicKey().String()
	})

	signedTx, sig, err := client.SignTransaction(context.Background(), tx, ExampleKey())
	require.NoError(t, err)

	assert.Same(t, tx, signedTx)
	require.Len(t, signedTx.Signatures, 1)
	assert.Equal(t, sig, signedTx.Signatures[0])
	assert.NoError(t, signedTx.VerifySignatures())

	submits, polls := service.counts()
	assert.Equal(t, 1, submits)
	assert.Zero(t, polls, "a terminal submission response must not trigger polling")

	// The submitted envelope carries the exact message bytes, hex encoded,
	// with service-side hashing disabled.
	var req struct {
		Type           string                   `json:"type"`
		TimestampMs    string                   `json:"timestampMs"`
		OrganizationID string                   `json:"organizationId"`
		Parameters     signRawPayloadParameters `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(service.submitBody(1), &req))
	assert.Equal(t, ActivityTypeSignRawPayload, req.Type)
	assert.Equal(t, testOrganizationID, req.OrganizationID)
	assert.Equal(t, testPrivateKeyID, req.Parameters.SignWith)
	assert.Equal(t, payloadEncodingHexadecimal, req.Parameters.Encoding)
	assert.Equal(t, hashFunctionNotApplicable, req.Parameters.HashFunction)

	message, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(message), req.Parameters.Payload)

	ms, err := strconv.ParseInt(req.TimestampMs, 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli(), ms, float64(time.Minute.Milliseconds()))
}

func TestSignTransactionPollsUntilCompleted(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet()
	tx := newTransferTx(t, wallet.PublicKey())

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		return http.StatusOK, pendingActivity(ActivityStatusCreated)
	}
	service.onPoll = func(call int, activityID string) (int, any) {
		assert.Equal(t, testActivityID, activityID)
		if call < 3 {
			return http.StatusOK, pendingActivity(ActivityStatusPending)
		}
		return http.StatusOK, signedActivity(t, wallet.PrivateKey, service.submitBody(1))
	}

	client := newTestClient(t, server.URL)

	signedTx, _, err := client.SignTransaction(context.Background(), tx, WithPublicKey(wallet.PublicKey().String()))
	require.NoError(t, err)
	assert.NoError(t, signedTx.VerifySignatures())

	submits, polls := service.counts()
	assert.Equal(t, 1, submits, "pending activities are polled, never resubmitted")
	assert.Equal(t, 3, polls)
}

func TestSignTransactionPollRetriesTransientFaults(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet()
	tx := newTransferTx(t, wallet.PublicKey())

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		return http.StatusOK, pendingActivity(ActivityStatusCreated)
	}
	service.onPoll = func(call int, activityID string) (int, any) {
		switch call {
		case 1:
			return http.StatusServiceUnavailable, "upstream unavailable"
		case 2:
			return http.StatusInternalServerError, map[string]any{"code": 13, "message": "internal error"}
		default:
			return http.StatusOK, signedActivity(t, wallet.PrivateKey, service.submitBody(1))
		}
	}

	client := newTestClient(t, server.URL)

	signedTx, _, err := client.SignTransaction(context.Background(), tx, WithPublicKey(wallet.PublicKey().String()))
	require.NoError(t, err)
	assert.NoError(t, signedTx.VerifySignatures())

	_, polls := service.counts()
	assert.Equal(t, 3, polls)
}

func TestSignTransactionTimesOutWhileStillPending(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet()
	tx := newTransferTx(t, wallet.PublicKey())
	messageBefore, err := tx.Message.MarshalBinary()
	require.NoError(t, err)

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		return http.StatusOK, pendingActivity(ActivityStatusCreated)
	}
	service.onPoll = func(call int, activityID string) (int, any) {
		return http.StatusOK, pendingActivity(ActivityStatusConsensusNeeded)
	}

	client := newTestClient(t, server.URL, func(cfg *Config) {
		cfg.ActivityTimeout = 50 * time.Millisecond
	})

	_, _, err = client.SignTransaction(context.Background(), tx, WithPublicKey(wallet.PublicKey().String()))

	var timeoutErr *ActivityTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, testActivityID, timeoutErr.ActivityID)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
	assert.Contains(t, err.Error(), "outcome unknown")

	// The caller's transaction comes through untouched.
	assert.Empty(t, tx.Signatures)
	messageAfter, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, messageBefore, messageAfter)

	submits, polls := service.counts()
	assert.Equal(t, 1, submits)
	assert.GreaterOrEqual(t, polls, 1)
}

func TestSignTransactionSubmissionRejected(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet()
	tx := newTransferTx(t, wallet.PublicKey())

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		return http.StatusBadRequest, map[string]any{
			"code":    3,
			"message": "organization not recognized",
		}
	}

	client := newTestClient(t, server.URL)

	_, _, err := client.SignTransaction(context.Background(), tx, WithPublicKey(wallet.PublicKey().String()))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	require.NotNil(t, httpErr.Response)
	assert.Equal(t, "organization not recognized", httpErr.Response.Message)
	assert.False(t, httpErr.Retryable())

	submits, polls := service.counts()
	assert.Equal(t, 1, submits)
	assert.Zero(t, polls, "a rejected submission is never polled")
	assert.Empty(t, tx.Signatures)
}

func TestSignTransactionActivityFailure(t *testing.T) {
	t.Parallel()

	t.Run("failed on submission", func(t *testing.T) {
		wallet := solana.NewWallet()
		tx := newTransferTx(t, wallet.PublicKey())

		service, server := newFakeService(t)
		service.onSubmit = func(call int, body []byte) (int, any) {
			return http.StatusOK, failedActivity(ActivityStatusFailed, "policy denied the request")
		}

		client := newTestClient(t, server.URL)

		_, _, err := client.SignTransaction(context.Background(), tx, WithPublicKey(wallet.PublicKey().String()))

		var failedErr *ActivityFailedError
		require.ErrorAs(t, err, &failedErr)
		assert.Equal(t, testActivityID, failedErr.ActivityID)
		assert.Equal(t, ActivityStatusFailed, failedErr.ActivityStatus)
		assert.Contains(t, failedErr.Cause, "policy denied the request")

		_, polls := service.counts()
		assert.Zero(t, polls)
		assert.Empty(t, tx.Signatures)
	})

	t.Run("rejected while polling", func(t *testing.T) {
		wallet := solana.NewWallet()
		tx := newTransferTx(t, wallet.PublicKey())

		service, server := newFakeService(t)
		service.onSubmit = func(call int, body []byte) (int, any) {
			return http.StatusOK, pendingActivity(ActivityStatusConsensusNeeded)
		}
		service.onPoll = func(call int, activityID string) (int, any) {
			return http.StatusOK, failedActivity(ActivityStatusRejected, "rejected by quorum")
		}

		client := newTestClient(t, server.URL)

		_, _, err := client.SignTransaction(context.Background(), tx, WithPublicKey(wallet.PublicKey().String()))

		var failedErr *ActivityFailedError
		require.ErrorAs(t, err, &failedErr)
		assert.Equal(t, ActivityStatusRejected, failedErr.ActivityStatus)
		assert.Contains(t, failedErr.Cause, "rejected by quorum")

		_, polls := service.counts()
		assert.Equal(t, 1, polls)
		assert.Empty(t, tx.Signatures)
	})
}

func TestSignTransactionSignerNotRequired(t *testing.T) {
	t.Parallel()

	payer := solana.NewWallet()
	stranger := solana.NewWallet()
	tx := newTransferTx(t, payer.PublicKey())

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		return http.StatusOK, signedActivity(t, stranger.PrivateKey, body)
	}

	client := newTestClient(t, server.URL)

	_, _, err := client.SignTransaction(context.Background(), tx, WithPublicKey(stranger.PublicKey().String()))

	var notRequiredErr *SignerNotRequiredError
	require.ErrorAs(t, err, &notRequiredErr)
	assert.Equal(t, stranger.PublicKey(), notRequiredErr.PublicKey)
	assert.Empty(t, tx.Signatures)
}

func TestSignTransactionContextCanceled(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet()
	tx := newTransferTx(t, wallet.PublicKey())

	service, server := newFakeService(t)
	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.SignTransaction(ctx, tx, WithPublicKey(wallet.PublicKey().String()))
	require.ErrorIs(t, err, context.Canceled)

	submits, polls := service.counts()
	assert.Zero(t, submits)
	assert.Zero(t, polls)
}

func TestSignRawPayload(t *testing.T) {
	t.Parallel()

	t.Run("returns the decoded signature bytes", func(t *testing.T) {
		r := strings.Repeat("ab", 32)
		s := strings.Repeat("cd", 32)

		service, server := newFakeService(t)
		service.onSubmit = func(call int, body []byte) (int, any) {
			return http.StatusOK, activityResponse{Activity: Activity{
				ID:             testActivityID,
				OrganizationID: testOrganizationID,
				Type:           ActivityTypeSignRawPayload,
				Status:         ActivityStatusCompleted,
				Result: &ActivityResult{SignRawPayloadResult: &SignRawPayloadResult{
					R: r,
					S: s,
				}},
			}}
		}

		client := newTestClient(t, server.URL)

		sig, err := client.SignRawPayload(context.Background(), testPrivateKeyID, []byte("payload bytes"))
		require.NoError(t, err)
		require.Len(t, sig, 64)

		want, err := hex.DecodeString(r + s)
		require.NoError(t, err)
		assert.Equal(t, want, sig)
	})

	t.Run("completed activity without a result", func(t *testing.T) {
		service, server := newFakeService(t)
		service.onSubmit = func(call int, body []byte) (int, any) {
			return http.StatusOK, activityResponse{Activity: Activity{
				ID:     testActivityID,
				Status: ActivityStatusCompleted,
			}}
		}

		client := newTestClient(t, server.URL)

		_, err := client.SignRawPayload(context.Background(), testPrivateKeyID, []byte("payload"))
		require.ErrorIs(t, err, ErrMissingResult)
	})
}

func TestSignSerializedTransaction(t *testing.T) {
	t.Parallel()

	unsigned := []byte{0x01, 0x02, 0x03, 0x04}

	service, server := newFakeService(t)
	service.onSubmit = func(call int, body []byte) (int, any) {
		var req struct {
			Type       string                    `json:"type"`
			Parameters signTransactionParameters `json:"parameters"`
		}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, ActivityTypeSignTransaction, req.Type)
		assert.Equal(t, TransactionTypeSolana, req.Parameters.Type)
		assert.Equal(t, hex.EncodeToString(unsigned), req.Parameters.UnsignedTransaction)
		assert.Equal(t, testPrivateKeyID, req.Parameters.SignWith)

		return http.StatusOK, activityResponse{Activity: Activity{
			ID:     testActivityID,
			Status: ActivityStatusCompleted,
			Result: &ActivityResult{SignTransactionResult: &SignTransactionResult{
				SignedTransaction: "f00dfeed",
			}},
		}}
	}

	client := newTestClient(t, server.URL)

	signed, err := client.SignSerializedTransaction(context.Background(), TransactionTypeSolana, unsigned, testPrivateKeyID)
	require.NoError(t, err)
	assert.Equal(t, "f00dfeed", signed)
}

func TestGetActivity(t *testing.T) {
	t.Parallel()

	service, server := newFakeService(t)
	service.onPoll = func(call int, activityID string) (int, any) {
		assert.Equal(t, testActivityID, activityID)
		return http.StatusOK, activityResponse{Activity: Activity{
			ID:     testActivityID,
			Status: ActivityStatusCompleted,
			Result: &ActivityResult{SignTransactionResult: &SignTransactionResult{
				SignedTransaction: "aabb",
			}},
		}}
	}

	client := newTestClient(t, server.URL)

	act, err := client.GetActivity(context.Background(), testActivityID)
	require.NoError(t, err)
	assert.True(t, act.Completed())
	require.NotNil(t, act.Result)
	require.NotNil(t, act.Result.SignTransactionResult)
	assert.Equal(t, "aabb", act.Result.SignTransactionResult.SignedTransaction)
}

func TestWhoami(t *testing.T) {
	t.Parallel()

	service, server := newFakeService(t)
	service.onWhoami = func(body []byte) (int, any) {
		var req whoamiRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, testOrganizationID, req.OrganizationID)

		return http.StatusOK, WhoamiResponse{
			OrganizationID:   testOrganizationID,
			OrganizationName: "treasury-ops",
			UserID:           "8d6f4a2c-30cf-4f29-a23b-6c0fd21c11de",
			Username:         "signer-bot",
		}
	}

	client := newTestClient(t, server.URL)

	who, err := client.Whoami(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testOrganizationID, who.OrganizationID)
	assert.Equal(t, "treasury-ops", who.OrganizationName)
	assert.Equal(t, "signer-bot", who.Username)
}

func TestNewClientWithConfig(t *testing.T) {
	t.Parallel()

	publicKeyHex, privateKeyHex := newAPIKey(t)
	base := Config{
		OrganizationID: testOrganizationID,
		APIPublicKey:   publicKeyHex,
		APIPrivateKey:  privateKeyHex,
	}

	t.Run("fills defaults", func(t *testing.T) {
		client, err := NewClientWithConfig(base, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, client.cfg.BaseURL)
		assert.Equal(t, defaultHTTPTimeout, client.cfg.HTTPTimeout)
		assert.Equal(t, defaultPollInterval, client.cfg.PollInterval)
		assert.Equal(t, defaultActivityTimeout, client.cfg.ActivityTimeout)
	})

	t.Run("trims a trailing base URL slash", func(t *testing.T) {
		cfg := base
		cfg.BaseURL = "https://api.turnkey.com/"
		client, err := NewClientWithConfig(cfg, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.turnkey.com", client.transport.baseURL)
	})

	t.Run("rejects a missing organization id", func(t *testing.T) {
		cfg := base
		cfg.OrganizationID = ""
		_, err := NewClientWithConfig(cfg, nil, nil)

		var confErr *ConfigurationError
		require.ErrorAs(t, err, &confErr)
		assert.Equal(t, "OrganizationID", confErr.Field)
	})

	t.Run("rejects an out-of-range credential scalar", func(t *testing.T) {
		cfg := base
		cfg.APIPrivateKey = strings.Repeat("00", 32)
		_, err := NewClientWithConfig(cfg, nil, nil)

		var signErr *stamp.SigningError
		require.ErrorAs(t, err, &signErr)
	})
}

// fakeService scripts the signer service for tests. Response functions
// receive the 1-based call number for their endpoint and return the HTTP
// status plus a response value: structs are JSON encoded, strings are
// written verbatim.
type fakeService struct {
	t *testing.T

	mu           sync.Mutex
	submits      int
	polls        int
	submitBodies [][]byte

	onSubmit func(call int, body []byte) (int, any)
	onPoll   func(call int, activityID string) (int, any)
	onWhoami func(body []byte) (int, any)
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()

	f := &fakeService{t: t}
	server := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	assert.NoError(f.t, err)

	// Every request must carry a stamp that verifies over the exact bytes
	// received.
	assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
	assert.NoError(f.t, stamp.Verify(r.Header.Get(stamp.HeaderName), body), "request stamp does not verify")

	status := http.StatusNotFound
	var res any

	switch r.URL.Path {
	case endpointSignRawPayload, endpointSignTransaction:
		f.mu.Lock()
		f.submits++
		call := f.submits
		f.submitBodies = append(f.submitBodies, body)
		fn := f.onSubmit
		f.mu.Unlock()

		if assert.NotNil(f.t, fn, "unexpected submit request") {
			status, res = fn(call, body)
		}
	case endpointGetActivity:
		f.mu.Lock()
		f.polls++
		call := f.polls
		fn := f.onPoll
		f.mu.Unlock()

		var req getActivityRequest
		assert.NoError(f.t, json.Unmarshal(body, &req))
		assert.Equal(f.t, testOrganizationID, req.OrganizationID)

		if assert.NotNil(f.t, fn, "unexpected get_activity request") {
			status, res = fn(call, req.ActivityID)
		}
	case endpointWhoami:
		f.mu.Lock()
		fn := f.onWhoami
		f.mu.Unlock()

		if assert.NotNil(f.t, fn, "unexpected whoami request") {
			status, res = fn(body)
		}
	default:
		assert.Failf(f.t, "unexpected request path", "%s", r.URL.Path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch v := res.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, v)
	default:
		assert.NoError(f.t, json.NewEncoder(w).Encode(v))
	}
}

func (f *fakeService) counts() (submits, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits, f.polls
}

func (f *fakeService) submitBody(call int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitBodies[call-1]
}

// newTestClient builds a client against the fake service with poll timing
// tightened so tests run in milliseconds.
func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()

	publicKeyHex, privateKeyHex := newAPIKey(t)
	cfg := Config{
		OrganizationID:  testOrganizationID,
		APIPublicKey:    publicKeyHex,
		APIPrivateKey:   privateKeyHex,
		BaseURL:         baseURL,
		PrivateKeyID:    testPrivateKeyID,
		HTTPTimeout:     5 * time.Second,
		PollInterval:    time.Millisecond,
		PollIntervalCap: 4 * time.Millisecond,
		ActivityTimeout: time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := NewClientWithConfig(cfg, nil, NewMetricsWithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	return client
}

func newAPIKey(t *testing.T) (publicKeyHex, privateKeyHex string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), crand.Reader)
	require.NoError(t, err)

	scalar := make([]byte, 32)
	key.D.FillBytes(scalar)
	return hex.EncodeToString(elliptic.MarshalCompressed(elliptic.P256(), key.X, key.Y)),
		hex.EncodeToString(scalar)
}

// newTransferTx builds a single-signer system transfer paid by payer.
func newTransferTx(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()

	recipient := solana.NewWallet().PublicKey()
	blockhash := solana.Hash(solana.NewWallet().PublicKey())

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000_000, payer, recipient).Build(),
		},
		blockhash,
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func pendingActivity(status string) activityResponse {
	return activityResponse{Activity: Activity{
		ID:             testActivityID,
		OrganizationID: testOrganizationID,
		Type:           ActivityTypeSignRawPayload,
		Status:         status,
	}}
}

func failedActivity(status, message string) activityResponse {
	return activityResponse{Activity: Activity{
		ID:             testActivityID,
		OrganizationID: testOrganizationID,
		Type:           ActivityTypeSignRawPayload,
		Status:         status,
		Failure:        &ResponseError{Code: 7, Message: message},
	}}
}

// signedActivity builds a completed raw-payload activity whose signature is
// a real Ed25519 signature by key over the payload the submission carried.
func signedActivity(t *testing.T, key solana.PrivateKey, submitBody []byte) activityResponse {
	var req struct {
		Parameters signRawPayloadParameters `json:"parameters"`
	}
	if !assert.NoError(t, json.Unmarshal(submitBody, &req)) {
		return activityResponse{}
	}

	message, err := hex.DecodeString(req.Parameters.Payload)
	if !assert.NoError(t, err) {
		return activityResponse{}
	}

	sig, err := key.Sign(message)
	if !assert.NoError(t, err) {
		return activityResponse{}
	}

	return activityResponse{Activity: Activity{
		ID:             testActivityID,
		OrganizationID: testOrganizationID,
		Type:           ActivityTypeSignRawPayload,
		Status:         ActivityStatusCompleted,
		Result: &ActivityResult{SignRawPayloadResult: &SignRawPayloadResult{
			R: hex.EncodeToString(sig[:32]),
			S: hex.EncodeToString(sig[32:]),
		}},
	}}
}
