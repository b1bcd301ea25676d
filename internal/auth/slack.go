package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jetfund/jetfund-backend/internal/users"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"golang.org/x/oauth2"
)

const (
	slackUserIDClaim = "https://slack.com/user_id"
	slackTeamIDClaim = "https://slack.com/team_id"
	userInfoLimit    = 64 << 10
)

var (
	errMissingSubject = errors.New("slack userinfo has no subject")
	errWrongTeam      = errors.New("slack user belongs to another workspace")
)

// SlackProvider runs the Slack OpenID Connect code flow.
type SlackProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	teamID      string
	httpClient  *http.Client
}

// SlackOption configures optional provider behavior.
type SlackOption func(*SlackProvider)

// WithSlackHTTPClient routes token exchange and userinfo calls through client.
func WithSlackHTTPClient(client *http.Client) SlackOption {
	return func(p *SlackProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

func NewSlackProvider(cfg config.SlackConfig, opts ...SlackOption) *SlackProvider {
	p := &SlackProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		teamID:      strings.TrimSpace(cfg.TeamID),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// AuthCodeURL is where the browser goes to sign in.
func (p *SlackProvider) AuthCodeURL(state string) string {
	params := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("nonce", state)}
	if p.teamID != "" {
		params = append(params, oauth2.SetAuthURLParam("team", p.teamID))
	}
	return p.oauth.AuthCodeURL(state, params...)
}

type slackUserInfo struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Sub    string `json:"sub"`
	UserID string `json:"https://slack.com/user_id"`
	TeamID string `json:"https://slack.com/team_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Identify exchanges the code and reads the signed-in user's identity.
func (p *SlackProvider) Identify(ctx context.Context, code string) (users.Identity, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return users.Identity{}, fmt.Errorf("exchange slack code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return users.Identity{}, err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return users.Identity{}, fmt.Errorf("fetch slack userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return users.Identity{}, fmt.Errorf("slack userinfo returned status %d", resp.StatusCode)
	}

	var info slackUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, userInfoLimit)).Decode(&info); err != nil {
		return users.Identity{}, fmt.Errorf("decode slack userinfo: %w", err)
	}
	if !info.OK && info.Error != "" {
		return users.Identity{}, fmt.Errorf("slack userinfo: %s", info.Error)
	}
	if p.teamID != "" && info.TeamID != p.teamID {
		return users.Identity{}, errWrongTeam
	}

	subject := info.UserID
	if subject == "" {
		subject = info.Sub
	}
	if subject == "" {
		return users.Identity{}, errMissingSubject
	}
	return users.Identity{SlackID: subject, Name: info.Name, Email: info.Email}, nil
}
