package adapter

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/types"
)

const listingsFixture = `{
  "status": {"error_code": 0},
  "data": [
    {
      "id": 101,
      "name": "Alpha Dog",
      "symbol": "ADOG",
      "date_added": "2026-10-10T08:30:00.000Z",
      "quote": {"USD": {
        "price": 0.0042,
        "percent_change_24h": 25.5,
        "volume_24h": 60000,
        "volume_change_24h": 12.25,
        "market_cap": 1250000
      }}
    },
    {
      "id": 102,
      "name": "Broken Date",
      "symbol": "BDATE",
      "date_added": "last tuesday",
      "quote": {"USD": {"price": 1, "percent_change_24h": 30, "volume_24h": 90000}}
    }
  ]
}`

func newTestCMCClient(t *testing.T, baseURL string) *CMCClient {
	t.Helper()

	client, err := NewCMCClient(&CMCClientConfig{
		APIKey:      "cmc-key",
		BaseURL:     baseURL,
		TargetChain: "solana",
	})
	require.NoError(t, err)
	return client
}

func TestNewCMCClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client, err := NewCMCClient(&CMCClientConfig{APIKey: "k", TargetChain: "solana"})
		require.NoError(t, err)
		assert.Equal(t, DefaultCMCBaseURL, client.baseURL)
		assert.Equal(t, DefaultListingsLimit, client.limit)
		assert.NotNil(t, client.httpClient)
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		client, err := NewCMCClient(&CMCClientConfig{APIKey: "k", TargetChain: "solana", BaseURL: "http://x/"})
		require.NoError(t, err)
		assert.Equal(t, "http://x", client.baseURL)
	})

	t.Run("requires api key", func(t *testing.T) {
		_, err := NewCMCClient(&CMCClientConfig{TargetChain: "solana"})
		assert.ErrorContains(t, err, "api key is required")
	})

	t.Run("requires target chain", func(t *testing.T) {
		_, err := NewCMCClient(&CMCClientConfig{APIKey: "k"})
		assert.ErrorContains(t, err, "target chain is required")
	})
}

func TestFetchSnapshot(t *testing.T) {
	fake := &fakeCMC{listingsBody: listingsFixture}
	srv := fake.start(t)
	client := newTestCMCClient(t, srv.URL)

	items, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "5000", fake.listingsQuery.Get("limit"))
	assert.Equal(t, "USD", fake.listingsQuery.Get("convert"))
	assert.Equal(t, "percent_change_24h", fake.listingsQuery.Get("sort"))
	assert.Equal(t, "desc", fake.listingsQuery.Get("sort_dir"))
	assert.Equal(t, "tokens", fake.listingsQuery.Get("cryptocurrency_type"))
	assert.Equal(t, []string{"cmc-key"}, fake.apiKeys)

	first := items[0]
	assert.Equal(t, int64(101), first.ID)
	assert.Equal(t, "ADOG", first.Symbol)
	assert.Equal(t, "Alpha Dog", first.Name)
	assert.Equal(t, types.Quote{
		Price:            0.0042,
		PercentChange24h: 25.5,
		Volume24h:        60000,
		VolumeChange24h:  12.25,
		MarketCap:        1250000,
	}, first.Quote)
	assert.Equal(t, time.Date(2026, 10, 10, 8, 30, 0, 0, time.UTC), first.ListedAt)

	assert.True(t, items[1].ListedAt.IsZero(), "unparsable date leaves ListedAt zero")
}

func TestFetchSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "provider error status",
			status:  http.StatusUnauthorized,
			body:    `{"status":{"error_code":1001,"error_message":"This API Key is invalid."}}`,
			wantErr: scanerrors.ErrTransport,
			wantMsg: "This API Key is invalid.",
		},
		{
			name:    "malformed json",
			body:    `{"data": [`,
			wantErr: scanerrors.ErrDecode,
		},
		{
			name:    "missing data field",
			body:    `{"status":{"error_code":0}}`,
			wantErr: scanerrors.ErrDecode,
			wantMsg: "no data field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCMC{listingsBody: tt.body, listingsStatus: tt.status}
			srv := fake.start(t)
			client := newTestCMCClient(t, srv.URL)

			items, err := client.FetchSnapshot(context.Background())
			assert.Nil(t, items)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, scanerrors.IsProviderUnavailable(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestFetchSnapshot_EmptyData(t *testing.T) {
	fake := &fakeCMC{listingsBody: `{"data": []}`}
	srv := fake.start(t)
	client := newTestCMCClient(t, srv.URL)

	items, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func solanaInfo(description string) map[string]interface{} {
	return map[string]interface{}{
		"id":          101,
		"symbol":      "ADOG",
		"description": description,
		"urls": map[string]interface{}{
			"website":  []string{"https://adog.example", "https://mirror.example"},
			"twitter":  []string{"https://twitter.com/adog"},
			"chat":     []string{"https://t.me/adog"},
			"explorer": []string{"https://solscan.io/token/9TY6DUg1VSssYH5tFE95qoq5hnAGFak4w3cn72sJNCoV"},
		},
		"platform": map[string]interface{}{
			"name":          "Solana",
			"token_address": "9TY6DUg1VSssYH5tFE95qoq5hnAGFak4w3cn72sJNCoV",
		},
	}
}

func TestFetchMetadata(t *testing.T) {
	fake := &fakeCMC{info: map[string]interface{}{"101": solanaInfo("A dog with a hat.")}}
	srv := fake.start(t)
	client := newTestCMCClient(t, srv.URL)

	meta, err := client.FetchMetadata(context.Background(), 101, "ADOG")
	require.NoError(t, err)

	assert.Equal(t, &types.TokenMetadata{
		Website:      "https://adog.example",
		Twitter:      "https://twitter.com/adog",
		Telegram:     "https://t.me/adog",
		Explorer:     "https://solscan.io/token/9TY6DUg1VSssYH5tFE95qoq5hnAGFak4w3cn72sJNCoV",
		Description:  "A dog with a hat....",
		Platform:     "Solana",
		TokenAddress: "9TY6DUg1VSssYH5tFE95qoq5hnAGFak4w3cn72sJNCoV",
	}, meta)
}

func TestFetchMetadata_Description(t *testing.T) {
	long := strings.Repeat("ü", 150)

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"empty becomes placeholder", "", types.NotAvailable},
		{"long is cut to 100 runes", long, strings.Repeat("ü", 100) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCMC{info: map[string]interface{}{"101": solanaInfo(tt.description)}}
			srv := fake.start(t)
			client := newTestCMCClient(t, srv.URL)

			meta, err := client.FetchMetadata(context.Background(), 101, "ADOG")
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.Description)
		})
	}
}

func TestFetchMetadata_MissingURLsAndAddress(t *testing.T) {
	fake := &fakeCMC{info: map[string]interface{}{
		"7": map[string]interface{}{
			"id":       7,
			"urls":     map[string]interface{}{},
			"platform": map[string]interface{}{"name": "solana"},
		},
	}}
	srv := fake.start(t)
	client := newTestCMCClient(t, srv.URL)

	meta, err := client.FetchMetadata(context.Background(), 7, "BARE")
	require.NoError(t, err)
	assert.Empty(t, meta.Website)
	assert.Empty(t, meta.Twitter)
	assert.Equal(t, types.NotAvailable, meta.TokenAddress)
	assert.Equal(t, "solana", meta.Platform)
}

func TestFetchMetadata_NotApplicable(t *testing.T) {
	ethInfo := solanaInfo("erc20")
	ethInfo["platform"] = map[string]interface{}{
		"name":          "Ethereum",
		"token_address": "0x6982508145454ce325ddbe47a25d4ec3d2311933",
	}
	nativeInfo := solanaInfo("native coin")
	nativeInfo["platform"] = nil

	tests := []struct {
		name    string
		fake    *fakeCMC
		wantErr error
	}{
		{
			name:    "id missing from data",
			fake:    &fakeCMC{info: map[string]interface{}{}},
			wantErr: scanerrors.ErrNotFound,
		},
		{
			name:    "provider rejects unknown id",
			fake:    &fakeCMC{infoStatus: http.StatusBadRequest, infoBody: `{"status":{"error_code":400,"error_message":"Invalid value for \"id\""}}`},
			wantErr: scanerrors.ErrNotFound,
		},
		{
			name:    "other chain",
			fake:    &fakeCMC{info: map[string]interface{}{"101": ethInfo}},
			wantErr: scanerrors.ErrPlatformMismatch,
		},
		{
			name:    "no platform",
			fake:    &fakeCMC{info: map[string]interface{}{"101": nativeInfo}},
			wantErr: scanerrors.ErrPlatformMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tt.fake.start(t)
			client := newTestCMCClient(t, srv.URL)

			meta, err := client.FetchMetadata(context.Background(), 101, "ADOG")
			assert.Nil(t, meta)
			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, scanerrors.IsProviderUnavailable(err))
		})
	}
}

func TestFetchMetadata_TransportError(t *testing.T) {
	fake := &fakeCMC{infoStatus: http.StatusInternalServerError, infoBody: "upstream down"}
	srv := fake.start(t)
	client := newTestCMCClient(t, srv.URL)

	_, err := client.FetchMetadata(context.Background(), 101, "ADOG")
	require.ErrorIs(t, err, scanerrors.ErrTransport)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, 1, fake.infoCalls)
}

func TestFetchMetadata_Unreachable(t *testing.T) {
	fake := &fakeCMC{}
	srv := fake.start(t)
	client := newTestCMCClient(t, srv.URL)
	srv.Close()

	_, err := client.FetchMetadata(context.Background(), 101, "ADOG")
	require.ErrorIs(t, err, scanerrors.ErrTransport)
	assert.Zero(t, scanerrors.Categorize(err).StatusCode)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
}
