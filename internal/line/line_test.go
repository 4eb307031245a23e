package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"highnoon/pkg/logx"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	t.Parallel()
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	assert.True(t, ValidateSignature(secret, sign(secret, body), body))
	assert.False(t, ValidateSignature(secret, sign("other", body), body))
	assert.False(t, ValidateSignature(secret, sign(secret, body), []byte("tampered")))
	assert.False(t, ValidateSignature(secret, "!!! not base64", body))
	assert.False(t, ValidateSignature("", sign(secret, body), body))
	assert.False(t, ValidateSignature(secret, "", body))
}

func TestMulticastRejectsOversizedBatch(t *testing.T) {
	t.Parallel()
	c := NewClient(Config{ChannelAccessToken: "tok"}, logx.Nop())

	to := make([]string, MaxMulticastRecipients+1)
	for i := range to {
		to[i] = "U"
	}
	err := c.Multicast(context.Background(), to, "hi")
	require.Error(t, err)

	// Empty batch is a silent no-op, no HTTP call.
	require.NoError(t, c.Multicast(context.Background(), nil, "hi"))
}

func TestClientCalls(t *testing.T) {
	t.Parallel()

	type captured struct {
		path     string
		auth     string
		retryKey string
		body     map[string]any
	}
	var got captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.retryKey = r.Header.Get("X-Line-Retry-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{ChannelAccessToken: "tok", APIBase: srv.URL}, logx.Nop())
	ctx := context.Background()

	require.NoError(t, c.Reply(ctx, "rt-1", "hello"))
	assert.Equal(t, "/v2/bot/message/reply", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "rt-1", got.body["replyToken"])
	assert.Empty(t, got.retryKey)

	require.NoError(t, c.Push(ctx, "U1", "direct"))
	assert.Equal(t, "/v2/bot/message/push", got.path)
	assert.Equal(t, "U1", got.body["to"])

	require.NoError(t, c.Multicast(ctx, []string{"U1", "U2"}, "hi"))
	assert.Equal(t, "/v2/bot/message/multicast", got.path)
	assert.NotEmpty(t, got.retryKey, "multicast carries a retry key")
	assert.Len(t, got.body["to"], 2)

	require.NoError(t, c.Broadcast(ctx, "to everyone"))
	assert.Equal(t, "/v2/bot/message/broadcast", got.path)
	assert.NotEmpty(t, got.retryKey)

	require.NoError(t, c.ShowLoadingAnimation(ctx, "U1", 0))
	assert.Equal(t, "/v2/bot/chat/loading/start", got.path)
	assert.EqualValues(t, 20, got.body["loadingSeconds"])
}

func TestClientReportsAPIFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{ChannelAccessToken: "bad", APIBase: srv.URL}, logx.Nop())
	err := c.Push(context.Background(), "U1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
