package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/eshaffer321/calimoto-go/internal/config"
	"github.com/eshaffer321/calimoto-go/internal/logging"
	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
)

type commandContext struct {
	configDirFlag   *string
	logLevelFlag    *string
	sessionFileFlag *string
	baseOptions     *calimoto.ClientOptions

	configOnce sync.Once
	config     *config.Config
	configErr  error

	clientOnce sync.Once
	client     *calimoto.Client
	logger     *logging.ZapLogger
	clientErr  error
}

func newCommandContext(configDirFlag, logLevelFlag, sessionFileFlag *string, base *calimoto.ClientOptions) *commandContext {
	return &commandContext{
		configDirFlag:   configDirFlag,
		logLevelFlag:    logLevelFlag,
		sessionFileFlag: sessionFileFlag,
		baseOptions:     base,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(flagValue(c.configDirFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.LogLevel = level
		}
		if path := flagValue(c.sessionFileFlag); path != "" {
			cfg.SessionFile = config.ExpandPath(path)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureClient() (*calimoto.Client, error) {
	c.clientOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.clientErr = err
			return
		}

		logger, err := logging.NewZap(cfg.LogLevel)
		if err != nil {
			c.clientErr = fmt.Errorf("create logger: %w", err)
			return
		}
		c.logger = logger

		opts := calimoto.ClientOptions{}
		if c.baseOptions != nil {
			opts = *c.baseOptions
		}
		opts.Logger = logger
		opts.SessionFile = cfg.SessionFile
		opts.SentryDSN = cfg.SentryDSN

		c.client, c.clientErr = calimoto.NewClient(&opts)
		if c.clientErr == nil && cfg.HasCredentials() {
			// lets a session loaded from file be renewed when it expires
			c.client.Auth.SetCredentials(cfg.Username, cfg.Password)
		}
	})
	return c.client, c.clientErr
}

// withSession hands fn a client that holds a session, logging in with the
// configured credentials when no stored session is available
func (c *commandContext) withSession(ctx context.Context, fn func(*calimoto.Client) error) error {
	client, err := c.ensureClient()
	if err != nil {
		return err
	}

	if _, err := client.GetSession(); err != nil {
		cfg, _ := c.ensureConfig()
		if !cfg.HasCredentials() {
			return fmt.Errorf("not logged in: set CALIMOTO_USERNAME and CALIMOTO_PASSWORD or add a %s file", config.CredentialsFile)
		}
		if _, err := client.Auth.Login(ctx, cfg.Username, cfg.Password); err != nil {
			return err
		}
	}

	return fn(client)
}

func (c *commandContext) close() {
	if c.client != nil {
		c.client.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}
