package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LeaderboardURL string
	HomeURL        string
	LoginURL       string

	MaxPages int
	Headless bool

	CSVOutputPath string
	CookiesFile   string
	SelectorsFile string
	DumpHTMLDir   string
	ReplayDir     string
	ChromeBin     string
	LogLevel      string

	WhopEmail    string
	WhopPassword string

	PageTimeout    time.Duration
	LookupTimeout  time.Duration
	ItemDelayMin   time.Duration
	ItemDelayMax   time.Duration
	PageDelayMin   time.Duration
	PageDelayMax   time.Duration
	LoginPollCount int
	LoginPollEvery time.Duration
	TwoFactorWait  time.Duration
	MaxRetries     int

	StorePostgres    bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		LeaderboardURL: getEnv("LEADERBOARD_URL", "https://whop.com/discover/leaderboards/c/trading/p/%d/"),
		HomeURL:        getEnv("WHOP_HOME_URL", "https://whop.com/"),
		LoginURL:       getEnv("WHOP_LOGIN_URL", "https://whop.com/login/"),

		MaxPages: getEnvInt("MAX_PAGES", 200),
		Headless: getEnvBool("HEADLESS", false),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./whop_trading_communities.csv"),
		CookiesFile:   getEnv("COOKIES_FILE", "./data/whop_cookies.json"),
		SelectorsFile: getEnv("SELECTORS_FILE", ""),
		DumpHTMLDir:   getEnv("DUMP_HTML_DIR", ""),
		ReplayDir:     getEnv("REPLAY_DIR", ""),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		// WHOP_USERNAME is accepted as an alias of WHOP_EMAIL.
		WhopEmail:    getEnv("WHOP_EMAIL", getEnv("WHOP_USERNAME", "")),
		WhopPassword: getEnv("WHOP_PASSWORD", ""),

		PageTimeout:    getEnvMs("PAGE_TIMEOUT_MS", 10000),
		LookupTimeout:  getEnvMs("LOOKUP_TIMEOUT_MS", 2000),
		ItemDelayMin:   getEnvMs("ITEM_DELAY_MIN_MS", 1000),
		ItemDelayMax:   getEnvMs("ITEM_DELAY_MAX_MS", 3000),
		PageDelayMin:   getEnvMs("PAGE_DELAY_MIN_MS", 2000),
		PageDelayMax:   getEnvMs("PAGE_DELAY_MAX_MS", 4000),
		LoginPollCount: getEnvInt("LOGIN_POLL_ATTEMPTS", 60),
		LoginPollEvery: getEnvMs("LOGIN_POLL_INTERVAL_MS", 5000),
		TwoFactorWait:  getEnvMs("TWO_FACTOR_WAIT_MS", 180000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		StorePostgres:    getEnvBool("STORE_POSTGRES", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "whop_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// HasCredentials reports whether both an email and a password are configured.
func (c *Config) HasCredentials() bool {
	return c.WhopEmail != "" && c.WhopPassword != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvMs(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}

func getEnvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
