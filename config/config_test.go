package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/coe/config"
)

var managedKeys = []string{
	"NODE_ENV", "APP_ENV", "APP_TITLE", "APP_NAME", "APP_URL",
	"POSTHOG_KEY", "POSTHOG_HOST", "POSTHOG_API_KEY",
	"DB_DIALECT", "DATABASE_URL", "DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME",
	"HTTP_ADDR", "USER_STORE", "LOG_LEVEL", "PROXY_RATE_LIMIT",
}

// setenv sets key for the current test and restores the previous value after.
func setenv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetenv(key string) {
	old, had := os.LookupEnv(key)
	if !had {
		return
	}
	Expect(os.Unsetenv(key)).To(Succeed())
	DeferCleanup(os.Setenv, key, old)
}

var _ = Describe("Config", func() {
	var envFile string

	BeforeEach(func() {
		for _, key := range managedKeys {
			unsetenv(key)
			unsetenv("NEXT_PUBLIC_" + key)
		}
		envFile = filepath.Join(GinkgoT().TempDir(), ".env")
	})

	writeEnvFile := func(lines ...string) {
		Expect(os.WriteFile(envFile, []byte(strings.Join(lines, "\n")+"\n"), 0o600)).To(Succeed())
	}

	Describe("Load", func() {
		It("applies defaults without an env file", func() {
			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.App.NodeEnv).To(Equal(config.EnvDevelopment))
			Expect(cfg.App.Env).To(Equal(config.EnvDevelopment))
			Expect(cfg.App.Title).To(Equal("Create Next CoE"))
			Expect(cfg.App.URL).To(Equal("http://localhost:3000"))
			Expect(cfg.Analytics.PostHogHost).To(Equal("https://eu.i.posthog.com"))
			Expect(cfg.Analytics.PostHogAssetsHost).To(Equal("https://eu-assets.i.posthog.com"))
			Expect(cfg.Analytics.PostHogIngest).To(Equal("/ingest"))
			Expect(cfg.Database.Dialect).To(Equal("sqlite"))
			Expect(cfg.Database.URL).To(Equal("file:./create-next-coe.db"))
			Expect(cfg.Database.MaxOpenConns).To(Equal(10))
			Expect(cfg.Database.ConnMaxLifetimeDuration()).To(Equal(30 * time.Minute))
			Expect(cfg.Server.Address).To(Equal(":3000"))
			Expect(cfg.Server.UserStore).To(Equal(config.UserStoreMemory))
			Expect(cfg.Server.HealthCheckIntervalDuration()).To(Equal(30 * time.Second))
			Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
			Expect(cfg.Proxy.RateLimit).To(Equal(50.0))
			Expect(cfg.Proxy.RateBurst).To(Equal(100))
			Expect(cfg.Proxy.BreakerThreshold).To(Equal(5))
			Expect(cfg.Proxy.BreakerTimeoutDuration()).To(Equal(30 * time.Second))
		})

		It("tolerates a missing env file", func() {
			cfg, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.env"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Database.Dialect).To(Equal("sqlite"))
		})

		It("reads values from the env file", func() {
			writeEnvFile(
				"APP_TITLE=From File",
				"DB_DIALECT=postgresql",
				"DATABASE_URL=postgres://app:secret@db:5432/app",
				"DB_MAX_OPEN_CONNS=20",
				"USER_STORE=database",
			)

			cfg, err := config.Load(envFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.Title).To(Equal("From File"))
			Expect(cfg.Database.Dialect).To(Equal("postgresql"))
			Expect(cfg.Database.MaxOpenConns).To(Equal(20))
			Expect(cfg.Server.UserStore).To(Equal(config.UserStoreDatabase))
		})

		It("lets the environment override the env file", func() {
			writeEnvFile("APP_TITLE=From File", "LOG_LEVEL=warn")
			setenv("APP_TITLE", "From Env")

			cfg, err := config.Load(envFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.Title).To(Equal("From Env"))
			Expect(cfg.Logging.Level).To(Equal(config.LogLevelWarn))
		})

		It("accepts NEXT_PUBLIC_ names in the env file", func() {
			writeEnvFile(
				"NEXT_PUBLIC_APP_ENV=staging",
				"NEXT_PUBLIC_POSTHOG_HOST=https://us.i.posthog.com",
			)

			cfg, err := config.Load(envFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.Env).To(Equal(config.EnvStaging))
			Expect(cfg.Analytics.PostHogHost).To(Equal("https://us.i.posthog.com"))
		})

		It("prefers the short name when the env file has both", func() {
			writeEnvFile("NEXT_PUBLIC_APP_NAME=Long", "APP_NAME=Short")

			cfg, err := config.Load(envFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.Name).To(Equal("Short"))
		})

		It("accepts NEXT_PUBLIC_ names in the environment", func() {
			setenv("NEXT_PUBLIC_APP_ENV", "production")

			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.Env).To(Equal(config.EnvProduction))
		})

		It("fails when the database URL does not match the dialect", func() {
			setenv("DB_DIALECT", "mysql")
			setenv("DATABASE_URL", "postgres://db/app")

			_, err := config.Load("")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("DATABASE_URL"))
			Expect(err.Error()).To(ContainSubstring("mysql://"))
		})

		It("lists every offending key", func() {
			setenv("DB_DIALECT", "oracle")
			setenv("LOG_LEVEL", "loud")
			setenv("APP_URL", "not a url")

			_, err := config.Load("")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("DB_DIALECT"))
			Expect(err.Error()).To(ContainSubstring("LOG_LEVEL"))
			Expect(err.Error()).To(ContainSubstring("APP_URL"))
		})
	})

	DescribeTable("single invalid values",
		func(key, value, mention string) {
			setenv(key, value)

			_, err := config.Load("")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(mention))
		},
		Entry("node env", "NODE_ENV", "staging", "NODE_ENV"),
		Entry("short posthog key", "POSTHOG_KEY", "phc_short", "PostHog key is required"),
		Entry("short posthog api key", "POSTHOG_API_KEY", "phx_short", "PostHog personal API key is required"),
		Entry("posthog host scheme", "POSTHOG_HOST", "ftp://eu.i.posthog.com", "POSTHOG_HOST"),
		Entry("max open conns", "DB_MAX_OPEN_CONNS", "0", "DB_MAX_OPEN_CONNS"),
		Entry("lifetime", "DB_CONN_MAX_LIFETIME", "forever", "DB_CONN_MAX_LIFETIME"),
		Entry("negative lifetime", "DB_CONN_MAX_LIFETIME", "-1m", "must not be negative"),
		Entry("zero health interval", "HEALTH_CHECK_INTERVAL", "0s", "HEALTH_CHECK_INTERVAL"),
		Entry("negative health interval", "HEALTH_CHECK_INTERVAL", "-5s", "must be greater than zero"),
		Entry("unparsable health interval", "HEALTH_CHECK_INTERVAL", "often", "HEALTH_CHECK_INTERVAL"),
		Entry("negative breaker timeout", "PROXY_BREAKER_TIMEOUT", "-1s", "PROXY_BREAKER_TIMEOUT"),
		Entry("zero breaker timeout", "PROXY_BREAKER_TIMEOUT", "0", "must be greater than zero"),
		Entry("http addr", "HTTP_ADDR", "3000", "HTTP_ADDR"),
		Entry("user store", "USER_STORE", "redis", "USER_STORE"),
		Entry("negative rate", "PROXY_RATE_LIMIT", "-1", "PROXY_RATE_LIMIT"),
		Entry("root ingest path", "POSTHOG_INGEST", "/", "POSTHOG_INGEST"),
		Entry("relative ingest path", "POSTHOG_INGEST", "ingest", "POSTHOG_INGEST"),
	)

	It("accepts a zero connection lifetime", func() {
		setenv("DB_CONN_MAX_LIFETIME", "0s")

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.ConnMaxLifetimeDuration()).To(BeZero())
	})

	It("accepts long enough analytics keys", func() {
		setenv("POSTHOG_KEY", "phc_"+strings.Repeat("a", 43))
		setenv("POSTHOG_API_KEY", "phx_"+strings.Repeat("b", 47))

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Analytics.PostHogKey).To(HaveLen(47))
	})
})
