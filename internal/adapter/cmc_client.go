// Package adapter provides HTTP clients for the listings and analytics providers.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/memecoin-scanner/internal/chain"
	scanerrors "github.com/memecoin-scanner/internal/errors"
	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/types"
)

const (
	cmcProvider = "coinmarketcap"

	// DefaultCMCBaseURL is the CoinMarketCap Pro API root
	DefaultCMCBaseURL = "https://pro-api.coinmarketcap.com"
	// DefaultListingsLimit is the number of listings requested per snapshot
	DefaultListingsLimit = 5000

	quoteCurrency     = "USD"
	descriptionMaxLen = 100
)

// CMCClientConfig holds configuration for the CoinMarketCap client
type CMCClientConfig struct {
	APIKey      string
	BaseURL     string
	Limit       int
	TargetChain string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// CMCClient fetches market snapshots and token metadata from CoinMarketCap
type CMCClient struct {
	apiKey      string
	baseURL     string
	limit       int
	targetChain string
	httpClient  *http.Client
}

// NewCMCClient creates a new CoinMarketCap API client
func NewCMCClient(cfg *CMCClientConfig) (*CMCClient, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.TargetChain == "" {
		return nil, errors.New("target chain is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultCMCBaseURL
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultListingsLimit
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &CMCClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		limit:       limit,
		targetChain: cfg.TargetChain,
		httpClient:  httpClient,
	}, nil
}

// cmcStatus is the status block included in every CoinMarketCap response
type cmcStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// cmcListingsResponse represents the listings/latest response
type cmcListingsResponse struct {
	Status cmcStatus     `json:"status"`
	Data   *[]cmcListing `json:"data"`
}

// cmcListing represents a single listing entry
type cmcListing struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	Symbol    string                 `json:"symbol"`
	DateAdded string                 `json:"date_added"`
	Quote     map[string]types.Quote `json:"quote"`
}

// cmcInfoResponse represents the v2 cryptocurrency/info response, keyed by id
type cmcInfoResponse struct {
	Status cmcStatus          `json:"status"`
	Data   map[string]cmcInfo `json:"data"`
}

// cmcInfo represents the metadata of one cryptocurrency
type cmcInfo struct {
	ID          int64        `json:"id"`
	Symbol      string       `json:"symbol"`
	Description string       `json:"description"`
	URLs        cmcURLs      `json:"urls"`
	Platform    *cmcPlatform `json:"platform"`
}

type cmcURLs struct {
	Website  []string `json:"website"`
	Twitter  []string `json:"twitter"`
	Chat     []string `json:"chat"`
	Explorer []string `json:"explorer"`
}

type cmcPlatform struct {
	Name         string `json:"name"`
	TokenAddress string `json:"token_address"`
}

// FetchSnapshot fetches the latest token listings sorted by 24h change, descending.
// The provider's ordering is a hint only; callers filter and sort on their own.
func (c *CMCClient) FetchSnapshot(ctx context.Context) ([]types.MarketSnapshotItem, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.limit))
	query.Set("convert", quoteCurrency)
	query.Set("sort", "percent_change_24h")
	query.Set("sort_dir", "desc")
	query.Set("cryptocurrency_type", "tokens")

	var resp cmcListingsResponse
	if err := c.get(ctx, "/v1/cryptocurrency/listings/latest", query, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, scanerrors.NewDecodeError(cmcProvider, errors.New("listings response has no data field"))
	}

	items := make([]types.MarketSnapshotItem, 0, len(*resp.Data))
	for _, listing := range *resp.Data {
		items = append(items, c.convertListing(ctx, listing))
	}

	return items, nil
}

// convertListing converts a listing entry to a snapshot item.
// An unparsable listing date leaves ListedAt zero, so the item never passes the age filter.
func (c *CMCClient) convertListing(ctx context.Context, listing cmcListing) types.MarketSnapshotItem {
	item := types.MarketSnapshotItem{
		ID:     listing.ID,
		Symbol: listing.Symbol,
		Name:   listing.Name,
		Quote:  listing.Quote[quoteCurrency],
	}

	if listing.DateAdded != "" {
		listedAt, err := time.Parse(time.RFC3339, listing.DateAdded)
		if err != nil {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"symbol":     listing.Symbol,
				"date_added": listing.DateAdded,
			}).Debug("Unparsable listing date")
		} else {
			item.ListedAt = listedAt.UTC()
		}
	}

	return item
}

// FetchMetadata fetches descriptive metadata for one token.
// It fails with NotFound when the provider has no record for id and with
// PlatformMismatch when the token is not hosted on the target chain.
func (c *CMCClient) FetchMetadata(ctx context.Context, id int64, symbol string) (*types.TokenMetadata, error) {
	key := strconv.FormatInt(id, 10)

	var resp cmcInfoResponse
	if err := c.get(ctx, "/v2/cryptocurrency/info", url.Values{"id": {key}}, &resp); err != nil {
		// CoinMarketCap answers 400 for ids it does not know
		var catErr *scanerrors.CategorizedError
		if errors.As(err, &catErr) && catErr.StatusCode == http.StatusBadRequest {
			return nil, scanerrors.NewNotFoundError("token metadata", key)
		}
		return nil, err
	}

	info, ok := resp.Data[key]
	if !ok {
		return nil, scanerrors.NewNotFoundError("token metadata", key)
	}

	var platform cmcPlatform
	if info.Platform != nil {
		platform = *info.Platform
	}
	if !chain.Matches(platform.Name, c.targetChain) {
		return nil, scanerrors.NewPlatformMismatchError(symbol, platform.Name, c.targetChain)
	}

	return &types.TokenMetadata{
		Website:      firstOrEmpty(info.URLs.Website),
		Twitter:      firstOrEmpty(info.URLs.Twitter),
		Telegram:     firstOrEmpty(info.URLs.Chat),
		Explorer:     firstOrEmpty(info.URLs.Explorer),
		Description:  truncateDescription(info.Description),
		Platform:     orNotAvailable(platform.Name),
		TokenAddress: orNotAvailable(platform.TokenAddress),
	}, nil
}

// get performs an authenticated GET and decodes the JSON body into out
func (c *CMCClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return scanerrors.NewTransportError(cmcProvider, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scanerrors.NewTransportError(cmcProvider, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return scanerrors.NewTransportError(cmcProvider, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return scanerrors.NewTransportError(cmcProvider, resp.StatusCode, cmcStatusError(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return scanerrors.NewDecodeError(cmcProvider, err)
	}

	return nil
}

// cmcStatusError extracts the provider's error message from a failed response
func cmcStatusError(body []byte) error {
	var envelope struct {
		Status cmcStatus `json:"status"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status.ErrorMessage != "" {
		return fmt.Errorf("error_code=%d: %s", envelope.Status.ErrorCode, envelope.Status.ErrorMessage)
	}
	return fmt.Errorf("body=%s", truncate(string(body), 200))
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func orNotAvailable(s string) string {
	if s == "" {
		return types.NotAvailable
	}
	return s
}

// truncateDescription keeps the first descriptionMaxLen runes followed by an ellipsis
func truncateDescription(description string) string {
	if description == "" {
		return types.NotAvailable
	}
	return truncate(description, descriptionMaxLen) + "..."
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
