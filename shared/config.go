package shared

import (
	"encoding/json"
	"github.com/tailscale/hujson"
	"log"
	"os"
	"strings"
)

const (
	configVarName  = "CONFIG"                // If set, will load config.json from this path and not from devConfigPath
	secretsVarName = "SECRETS"               // If set, will load secrets.json from this path and not from devSecretsPath
	devConfigPath  = "dev/config.dev.jsonc"  // Path to config.json in development environment
	devSecretsPath = "dev/secrets.dev.jsonc" // Path to secrets.json in development environment
)

const (
	DefaultUpstreamApiBase = "https://m.weibo.cn"
	DefaultUpstreamReferer = "https://m.weibo.cn/"
	DefaultImageReferer    = "https://weibo.com/"
	DefaultAcceptLanguage  = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Image hosts the edge router will fetch from. Matching is by substring of the host name.
var DefaultImageDomains = []string{"sinaimg.cn", "sina.cn", "weibo.com", "weibocdn.com"}

// Subset of image hosts the client rewrites to go through the edge router.
var DefaultClientImageDomains = []string{"sinaimg.cn", "sina.cn", "weibo.com"}

type Config struct {
	Secrets         Secrets  `json:"-"`
	LogFile         string   `json:"log_file"`
	LogLevel        string   `json:"log_level"`
	ServicePort     uint     `json:"service_port"`
	UpstreamApiBase string   `json:"upstream_api_base"`
	UpstreamReferer string   `json:"upstream_referer"`
	ImageReferer    string   `json:"image_referer"`
	AcceptLanguage  string   `json:"accept_language"`
	ImageDomains    []string `json:"image_domains"`
	DbFile          string   `json:"db_file"`
	ProxyBaseUrl    string   `json:"proxy_base_url"`
}

type Secrets struct {
	MetricsAuth string `json:"metrics_auth"`
}

func LoadConfig() *Config {

	// Where are our config and secrets files?
	cfgPath := os.Getenv(configVarName)
	if len(cfgPath) == 0 {
		cfgPath = devConfigPath
	}
	secretsPath := os.Getenv(secretsVarName)
	if len(secretsPath) == 0 {
		secretsPath = devSecretsPath
	}

	// Read config file
	var config Config
	mustDeserializeFile(cfgPath, &config)
	// Secrets file is optional: without it, the metrics endpoint stays unmounted
	if _, err := os.Stat(secretsPath); err == nil {
		mustDeserializeFile(secretsPath, &config.Secrets)
	}
	config.ApplyDefaults()
	return &config
}

// ApplyDefaults fills in upstream settings that the config file left empty.
func (cfg *Config) ApplyDefaults() {
	if cfg.UpstreamApiBase == "" {
		cfg.UpstreamApiBase = DefaultUpstreamApiBase
	}
	cfg.UpstreamApiBase = strings.TrimRight(cfg.UpstreamApiBase, "/")
	if cfg.UpstreamReferer == "" {
		cfg.UpstreamReferer = DefaultUpstreamReferer
	}
	if cfg.ImageReferer == "" {
		cfg.ImageReferer = DefaultImageReferer
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if len(cfg.ImageDomains) == 0 {
		cfg.ImageDomains = DefaultImageDomains
	}
	cfg.ProxyBaseUrl = strings.TrimRight(cfg.ProxyBaseUrl, "/")
}

func mustDeserializeFile[T any](fileName string, obj *T) {
	var err error
	var cfgJson []byte
	cfgJson, err = os.ReadFile(fileName)
	if err != nil {
		log.Fatal(err)
	}
	// JSONC => JSON
	cfgJson, err = standardizeJSON(cfgJson)
	if err != nil {
		log.Fatal(err)
	}
	// Parse
	if err := json.Unmarshal(cfgJson, obj); err != nil {
		log.Fatal(err)
	}
}

func standardizeJSON(b []byte) ([]byte, error) {
	ast, err := hujson.Parse(b)
	if err != nil {
		return b, err
	}
	ast.Standardize()
	return ast.Pack(), nil
}
