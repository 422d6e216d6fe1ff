package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	DBUrl      string
	JWTSecret  string
	JWTTTL     time.Duration
	SMTPHost   string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	SMTPSender string
	Debug      bool
}

// ParseFlags reads configuration from command line flags.
// A .env file, when present, provides defaults via environment variables.
func ParseFlags() (cfg Config, err error) {
	godotenv.Load()

	var host string
	flag.StringVar(&host, "host", envOr("SCHROEDINGER_HOST", "0.0.0.0"), "listen host name")
	var port uint
	flag.UintVar(&port, "port", envUintOr("SCHROEDINGER_PORT", 3000), "listen port number")
	flag.StringVar(&cfg.DBUrl, "db-url", os.Getenv("SCHROEDINGER_DB_URL"), "PostgreSQL connection URL")
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("SCHROEDINGER_JWT_SECRET"), "secret key for JWT signing and verification")
	var ttl uint
	flag.UintVar(&ttl, "jwt-ttl", envUintOr("SCHROEDINGER_JWT_TTL", 7200), "JWT TTL in seconds")
	flag.StringVar(&cfg.SMTPHost, "smtp-host", os.Getenv("SCHROEDINGER_SMTP_HOST"), "SMTP server host (empty: log outgoing mail)")
	flag.StringVar(&cfg.SMTPPort, "smtp-port", envOr("SCHROEDINGER_SMTP_PORT", "587"), "SMTP server port")
	flag.StringVar(&cfg.SMTPUser, "smtp-user", os.Getenv("SCHROEDINGER_SMTP_USER"), "SMTP user name")
	flag.StringVar(&cfg.SMTPPass, "smtp-pass", os.Getenv("SCHROEDINGER_SMTP_PASS"), "SMTP password")
	flag.StringVar(&cfg.SMTPSender, "smtp-sender", os.Getenv("SCHROEDINGER_SMTP_SENDER"), "sender address for outgoing mail")
	flag.BoolVar(&cfg.Debug, "debug", os.Getenv("SCHROEDINGER_DEBUG") == "true", "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.JWTTTL = time.Duration(ttl) * time.Second

	if cfg.DBUrl == "" {
		err = errors.New("missing parameter -db-url")
		return
	}
	if cfg.JWTSecret == "" {
		err = errors.New("missing parameter -jwt-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUintOr(key string, fallback uint) uint {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}
	return fallback
}
