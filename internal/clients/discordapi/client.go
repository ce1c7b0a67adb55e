package discordapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	// DefaultBaseURL is the API root the platform was written against
	DefaultBaseURL = "https://discordapp.com/api"

	defaultUserAgent = "DiscordBot (https://github.com/KirkDiggler/applebot, 1.0)"
	defaultTimeout   = 30 * time.Second
)

// Config holds configuration for the REST client
type Config struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string

	// HTTPClient is optional; a client with a 30s timeout is used otherwise
	HTTPClient *http.Client

	// UserAgent is optional
	UserAgent string
}

// Client implements the API interface on top of a discordgo session. The
// session carries no token of its own; every call authorizes with the token
// it is given, so one client serves every login.
type Client struct {
	baseURL string
	session *discordgo.Session
}

// New creates a new REST client
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}

	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	s.Client = cfg.HTTPClient
	if s.Client == nil {
		s.Client = &http.Client{Timeout: defaultTimeout}
	}

	s.UserAgent = cfg.UserAgent
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}

	// Throttling and retries are decided by the callers
	s.ShouldRetryOnRateLimit = false
	s.MaxRestRetries = 0

	return &Client{
		baseURL: baseURL,
		session: s,
	}, nil
}

// EndpointLogin returns the login endpoint
func (c *Client) EndpointLogin() string {
	return c.baseURL + "/auth/login"
}

// EndpointGateway returns the gateway discovery endpoint
func (c *Client) EndpointGateway() string {
	return c.baseURL + "/gateway"
}

// EndpointChannelMessages returns the message endpoint for a channel
func (c *Client) EndpointChannelMessages(channelID string) string {
	return c.baseURL + "/channels/" + url.PathEscape(channelID) + "/messages"
}

// Login exchanges account credentials for a bearer token
func (c *Client) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	if input == nil || input.Email == "" || input.Password == "" {
		return nil, errors.New("email and password are required")
	}

	data := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{input.Email, input.Password}

	var body struct {
		Token string `json:"token"`
	}
	if err := c.request(ctx, http.MethodPost, c.EndpointLogin(), "", data, &body); err != nil {
		return nil, err
	}

	if body.Token == "" {
		return nil, errors.New("login response did not contain a token")
	}

	return &LoginOutput{Token: body.Token}, nil
}

// GetGateway resolves the websocket URL to connect to
func (c *Client) GetGateway(ctx context.Context, input *GetGatewayInput) (*GetGatewayOutput, error) {
	if input == nil || input.Token == "" {
		return nil, errors.New("token is required")
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := c.request(ctx, http.MethodGet, c.EndpointGateway(), input.Token, nil, &body); err != nil {
		return nil, err
	}

	if body.URL == "" {
		return nil, errors.New("gateway response did not contain a url")
	}

	return &GetGatewayOutput{URL: body.URL}, nil
}

// CreateMessage posts a message to a channel
func (c *Client) CreateMessage(ctx context.Context, input *CreateMessageInput) error {
	if input == nil || input.Token == "" || input.ChannelID == "" {
		return errors.New("token and channel ID are required")
	}

	data := &discordgo.MessageSend{Content: input.Content}
	return c.request(ctx, http.MethodPost, c.EndpointChannelMessages(input.ChannelID), input.Token, data, nil)
}

// request sends data as JSON through the discordgo session and decodes the
// response into out. Non-2xx responses come back as *discordgo.RESTError, a
// 429 as *discordgo.RateLimitError.
func (c *Client) request(ctx context.Context, method, endpoint, token string, data, out interface{}) error {
	options := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if token != "" {
		options = append(options, discordgo.WithHeader("Authorization", token))
	}

	body, err := c.session.Request(method, endpoint, data, options...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := discordgo.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
