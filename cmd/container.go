// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, job queue) and
// composes bounded-context containers. This is the only place that knows
// about ALL modules.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Abraxas-365/manifesto/pkg/channel/channelcontainer"
	"github.com/Abraxas-365/manifesto/pkg/config"
	"github.com/Abraxas-365/manifesto/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/manifesto/pkg/jobx"
	"github.com/Abraxas-365/manifesto/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/manifesto/pkg/kv/kvredis"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/Abraxas-365/manifesto/pkg/mfa/mfanotify"
	"github.com/Abraxas-365/manifesto/pkg/notifx"
	"github.com/Abraxas-365/manifesto/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/manifesto/pkg/notifx/notifxjobx"
	"github.com/Abraxas-365/manifesto/pkg/notifx/notifxses"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB    *sqlx.DB
	Redis *redis.Client
	KV    *kvredis.Store
	Jobs  *jobx.Client

	// Bounded-context containers
	IAM     *iamcontainer.Container
	Channel *channelcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, file storage
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Config.Database.Host,
		c.Config.Database.Port,
		c.Config.Database.User,
		c.Config.Database.Password,
		c.Config.Database.Name,
		c.Config.Database.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis — backs both the KV store (lockout windows, MFA codes,
	// token revocation, reset cooldowns) and the channel rate limiter.
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	c.KV = kvredis.New(c.Redis)
	logx.Info("  ✅ Redis connected")

	logx.Info("✅ Infrastructure initialized")
}

// ---------------------------------------------------------------------------
// Module composition — each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	jobxCfg := c.Config.Jobx
	c.Jobs = jobx.NewClient(jobxredis.NewRedisQueue(c.Redis),
		jobx.WithQueues(jobxCfg.Queues...),
		jobx.WithConcurrency(jobxCfg.Concurrency),
		jobx.WithPollInterval(jobxCfg.PollInterval),
		jobx.WithShutdownTimeout(jobxCfg.ShutdownTimeout),
		jobx.WithDequeueTimeout(jobxCfg.DequeueTimeout),
		jobx.WithDefaultRetryDelay(jobxCfg.DefaultRetryDelay),
	)
	realEmailProvider := c.newEmailProvider()
	notifxjobx.RegisterHandler(c.Jobs, realEmailProvider)
	emailClient := notifx.NewClient(notifxjobx.NewAsyncSender(c.Jobs, "default"))

	var smsSender mfanotify.SMSSender = mfanotify.NewConsoleSMSSender()

	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:    c.DB,
		KV:    c.KV,
		Cfg:   c.Config,
		Email: emailClient,
		SMS:   smsSender,
	})

	c.Channel = channelcontainer.New(channelcontainer.Deps{
		DB:  c.DB,
		KV:  c.KV,
		Cfg: c.Config,
	})
}

// newEmailProvider picks the outbound email transport per NOTIFX_PROVIDER.
// "console" (the default) prints to the log so local dev never needs AWS
// credentials; "ses" loads the AWS SDK default config and sends through SES.
func (c *Container) newEmailProvider() notifx.EmailSender {
	switch c.Config.Email.Provider {
	case "ses":
		cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(c.Config.Email.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config for SES: %v", err)
		}
		return notifxses.NewSESProvider(ses.NewFromConfig(cfg), c.Config.Email.FromAddress)
	default:
		return notifxconsole.NewConsoleProvider()
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")
	c.IAM.StartBackgroundServices(ctx)
	if err := c.Channel.Start(ctx); err != nil {
		logx.Fatalf("Failed to start channel container: %v", err)
	}
	go func() {
		if err := c.Jobs.Start(ctx); err != nil {
			logx.WithFields(logx.Fields{"error": err.Error()}).Warn("jobx worker pool stopped")
		}
	}()
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
