package config

// Version information, set at build time

var Version = "development"
var CommitHash = "development"
var BuildTimestamp = "0000-00-00T00:00:00Z"

// Cookie names

var SessionCookieName = "postflow-session"

// Twitter OAuth2 endpoints. Overridable in tests through the provider config.

var TwitterAuthURL = "https://x.com/i/oauth2/authorize"
var TwitterTokenURL = "https://api.x.com/2/oauth2/token"
var TwitterUserinfoURL = "https://api.x.com/2/users/me"

// Main app config

type Config struct {
	Port                    int    `mapstructure:"port" validate:"required"`
	Address                 string `mapstructure:"address" validate:"required,ip4_addr"`
	AppURL                  string `mapstructure:"app-url" validate:"required,url"`
	DatabasePath            string `mapstructure:"database-path" validate:"required"`
	LogLevel                string `mapstructure:"log-level" validate:"oneof=trace debug info warn error fatal panic"`
	TwitterClientID         string `mapstructure:"twitter-client-id"`
	TwitterClientSecret     string `mapstructure:"twitter-client-secret"`
	TwitterClientSecretFile string `mapstructure:"twitter-client-secret-file"`
	TwitterRedirectURL      string `mapstructure:"twitter-redirect-url"`
	TwitterFallbackBearer   string `mapstructure:"twitter-fallback-bearer"`
	SessionSecret           string `mapstructure:"session-secret"`
	SessionExpiry           int    `mapstructure:"session-expiry"`
	StateTTL                int    `mapstructure:"state-ttl"`
	SecureCookie            bool   `mapstructure:"secure-cookie"`
	TrustedProxies          string `mapstructure:"trusted-proxies"`
}

// API responses and queries

type AuthorizeRequest struct {
	UserID  string `json:"userId"`
	IsLogin bool   `json:"isLogin"`
	Origin  string `json:"origin"`
}

type AuthorizeResponse struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

type ExchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type ExchangeResponse struct {
	Success         bool   `json:"success"`
	Username        string `json:"username"`
	UserID          string `json:"userId"`
	Action          string `json:"action"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type ErrorResponse struct {
	Error        string `json:"error"`
	Details      string `json:"details,omitempty"`
	RecentStates int64  `json:"recentStates,omitempty"`
}

type DashboardQuery struct {
	Username string `url:"username"`
	Linked   bool   `url:"linked"`
}
