// Command authd serves the marketplace authentication API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bazario-labs/authcore"
	"github.com/bazario-labs/authcore/httpapi"
	"github.com/bazario-labs/authcore/mail"
	"github.com/bazario-labs/authcore/userstore"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := run(logger); err != nil {
		logger.WithError(err).Fatal("authd exited")
	}
}

func run(logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := coreConfig()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return err
	}

	users, closeUsers, err := buildUserStore(logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	mailer, err := buildMailer(ctx, logger)
	if err != nil {
		return err
	}

	builder := authcore.New().
		WithConfig(cfg).
		WithRedis(redisClient).
		WithUserStore(users).
		WithMailer(mailer)
	if getEnv("AUDIT_LOG", "") == "stdout" {
		builder = builder.WithAuditSink(authcore.NewJSONWriterSink(os.Stdout))
	}

	core, err := builder.Build()
	if err != nil {
		return err
	}
	defer core.Close()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
	})
	httpapi.NewServer(core, logger).Register(app)

	addr := ":" + getEnv("PORT", "8080")
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()
	logger.WithField("addr", addr).Info("authd listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func coreConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.KeyPrefix = getEnv("KEY_PREFIX", cfg.KeyPrefix)
	cfg.JWT.AccessSecret = []byte(mustEnv("JWT_ACCESS_SECRET"))
	cfg.JWT.RefreshSecret = []byte(mustEnv("JWT_REFRESH_SECRET"))
	cfg.Cookie.Domain = getEnv("COOKIE_DOMAIN", "")
	cfg.Cookie.Production = getEnv("APP_ENV", "development") == "production"
	return cfg
}

func buildUserStore(logger *logrus.Logger) (authcore.UserStore, func(), error) {
	dsn := getEnv("DATABASE_URL", "")
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory user store")
		return userstore.NewMemory(), func() {}, nil
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Exec(userstore.Schema); err != nil {
		db.Close()
		return nil, nil, err
	}
	return userstore.NewPostgres(db), func() { db.Close() }, nil
}

func buildMailer(ctx context.Context, logger *logrus.Logger) (authcore.MailSender, error) {
	sender := getEnv("SES_SENDER", "")
	if sender == "" {
		logger.Warn("SES_SENDER not set, logging otp codes instead of mailing")
		return mail.NewLog(logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return mail.NewSES(ses.NewFromConfig(awsCfg), sender), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		logrus.Fatalf("required environment variable %s is not set", key)
	}
	return v
}
