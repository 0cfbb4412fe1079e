package kaspa

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kaspa402/utxocore/internal/config"
)

// requestTimeout bounds every single REST call the client makes.
const requestTimeout = 10 * time.Second

// ChainClient talks to a Kaspa REST gateway: the address UTXO set and
// the DAG's current virtual DAA score. It forces IPv4 dialing (the
// gateways this ships against are flaky over happy-eyeballs IPv6) and
// rate-limits outbound requests.
type ChainClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewChainClient builds a client for network, rate-limited to
// requestsPerSecond with the given burst.
func NewChainClient(network config.Network, requestsPerSecond float64, burst int) *ChainClient {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		},
	}

	return &ChainClient{
		httpClient: &http.Client{Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		baseURL:    network.BaseURL(),
	}
}

// FetchUTXOs calls GET /addresses/{addr}/utxos and returns the raw
// UTXO list exactly as reported.
func (c *ChainClient) FetchUTXOs(ctx context.Context, address string) ([]RawUTXO, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/addresses/%s/utxos", c.baseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("utxos endpoint returned status %d", resp.StatusCode)
	}

	var raw []RawUTXO
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode utxos response: %w", err)
	}
	return raw, nil
}

// blockDAGInfo is the subset of GET /info/blockdag this client cares
// about.
type blockDAGInfo struct {
	VirtualDAAScore string `json:"virtualDaaScore"`
}

// FetchVirtualDAAScore calls GET /info/blockdag and returns the
// current virtual DAA score as a decimal string.
func (c *ChainClient) FetchVirtualDAAScore(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/info/blockdag", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blockdag endpoint returned status %d", resp.StatusCode)
	}

	var info blockDAGInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode blockdag response: %w", err)
	}
	return info.VirtualDAAScore, nil
}
