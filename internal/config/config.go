package config

import (
	"fmt"
	"net/netip"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
		// IPs o CIDRs de los proxies cuyo X-Forwarded-For se acepta.
		// Vacío = se usa siempre el peer de la conexión.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver        string `yaml:"driver"`
		DSN           string `yaml:"dsn"`
		IdentityTable string `yaml:"identity_table"`
		Postgres      struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		SameSite   string `yaml:"same_site"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`

	// Rate limita callback/associate por IP y alias. Limit negativo desactiva.
	Rate struct {
		Callback struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"callback"`
	} `yaml:"rate"`

	HTTP struct {
		// timeout de las llamadas salientes a los providers
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"http"`

	// Providers por alias. El driver por defecto es el alias.
	Providers map[string]Provider `yaml:"providers"`
}

// Provider es la entrada de configuración de un alias.
type Provider struct {
	Driver         string   `yaml:"driver"`
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	RedirectURI    string   `yaml:"redirect_uri"`
	Scopes         []string `yaml:"scopes"`
	ConsumerKey    string   `yaml:"consumer_key"`
	ConsumerSecret string   `yaml:"consumer_secret"`

	// Overrides de endpoints (tests, instancias self-hosted).
	AuthorizeURL string `yaml:"authorize_url"`
	TokenURL     string `yaml:"token_url"`
	UserInfoURL  string `yaml:"userinfo_url"`
}

// Load lee el YAML de path (opcional: "" usa solo defaults y env), aplica
// defaults, pisa con variables de entorno y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.IdentityTable == "" {
		c.Storage.IdentityTable = "oauth_identities"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "oauthlink:"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "oauthlink_session"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "12h"
	}
	if c.Rate.Callback.Limit == 0 {
		c.Rate.Callback.Limit = 20
	}
	if c.Rate.Callback.Window == "" {
		c.Rate.Callback.Window = "1m"
	}
	if c.HTTP.Timeout == "" {
		c.HTTP.Timeout = "10s"
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "oauthlink"
	}
	// en prod la cookie de sesión siempre es Secure
	if strings.EqualFold(c.App.Env, "prod") {
		c.Session.Secure = true
	}
	for alias, p := range c.Providers {
		if p.Driver == "" {
			p.Driver = alias
			c.Providers[alias] = p
		}
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
		// un DSN sin driver explícito implica postgres
		if c.Storage.Driver == "" {
			c.Storage.Driver = "postgres"
		}
	}
	if v, ok := getEnvStr("STORAGE_IDENTITY_TABLE"); ok {
		c.Storage.IdentityTable = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_DOMAIN"); ok {
		c.Session.Domain = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}

	// RATE
	if v, ok := getEnvInt("RATE_CALLBACK_LIMIT"); ok {
		c.Rate.Callback.Limit = v
	}
	if v, ok := getEnvStr("RATE_CALLBACK_WINDOW"); ok {
		c.Rate.Callback.Window = v
	}

	// HTTP saliente
	if v, ok := getEnvStr("HTTP_TIMEOUT"); ok {
		c.HTTP.Timeout = v
	}

	c.applyProviderEnv()
}

// applyProviderEnv: OAUTH_PROVIDERS="spotify,github" habilita alias sin YAML;
// OAUTH_<ALIAS>_<KEY> pisa cada campo del alias.
func (c *Config) applyProviderEnv() {
	if c.Providers == nil {
		c.Providers = map[string]Provider{}
	}
	if aliases, ok := getEnvCSV("OAUTH_PROVIDERS"); ok {
		for _, a := range aliases {
			if _, exists := c.Providers[a]; !exists {
				c.Providers[a] = Provider{}
			}
		}
	}

	for alias, p := range c.Providers {
		prefix := "OAUTH_" + envName(alias) + "_"
		if v, ok := getEnvStr(prefix + "DRIVER"); ok {
			p.Driver = v
		}
		if v, ok := getEnvStr(prefix + "CLIENT_ID"); ok {
			p.ClientID = v
		}
		if v, ok := getEnvStr(prefix + "CLIENT_SECRET"); ok {
			p.ClientSecret = v
		}
		if v, ok := getEnvStr(prefix + "REDIRECT_URI"); ok {
			p.RedirectURI = v
		}
		if v, ok := getEnvCSV(prefix + "SCOPES"); ok {
			p.Scopes = v
		}
		if v, ok := getEnvStr(prefix + "CONSUMER_KEY"); ok {
			p.ConsumerKey = v
		}
		if v, ok := getEnvStr(prefix + "CONSUMER_SECRET"); ok {
			p.ConsumerSecret = v
		}
		c.Providers[alias] = p
	}
}

// envName: "my-spotify" -> "MY_SPOTIFY"
func envName(alias string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, alias))
}

// Validate revisa drivers y duraciones. Las claves requeridas de cada
// provider las valida su factory al construirlo.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			problems = append(problems, "storage.dsn is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q not supported (memory|postgres)", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			problems = append(problems, "cache.redis.addr is required for redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}

	for name, s := range map[string]string{
		"session.ttl":                        c.Session.TTL,
		"http.timeout":                       c.HTTP.Timeout,
		"rate.callback.window":               c.Rate.Callback.Window,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}

	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			problems = append(problems, fmt.Sprintf("server.trusted_proxies: %q is not an IP or CIDR", p))
		}
	}

	for alias := range c.Providers {
		if strings.TrimSpace(alias) == "" {
			problems = append(problems, "providers: empty alias")
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Duration parsea un campo de duración ya validado (0 si está vacío).
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Aliases retorna los alias configurados, ordenados.
func (c *Config) Aliases() []string {
	out := make([]string, 0, len(c.Providers))
	for a := range c.Providers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
