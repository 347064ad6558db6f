// Command awsign signs, presigns and sends S3 requests.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amwolff/awsign"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	debug      bool

	variant   string
	region    string
	endpoint  string
	scheme    string
	pathStyle bool

	method      string
	bucket      string
	key         string
	headers     []string
	queries     []string
	bodyFile    string
	contentType string
	checksums   []string

	cfg    Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:               "awsign",
		Short:             "Sign, presign and send S3 requests",
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = c.logger.Sync() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML, TOML or env file with credentials and defaults.")
	flags.BoolVar(&c.debug, "debug", false, "Log signing details.")
	flags.StringVar(&c.variant, "variant", "v4", "Signing variant, v4 or v2.")
	flags.StringVar(&c.region, "region", awsign.DefaultRegion, "Region used in the credential scope.")
	flags.StringVar(&c.endpoint, "endpoint", awsign.DefaultEndpoint, "Service endpoint as host[:port], optionally with a scheme.")
	flags.StringVar(&c.scheme, "scheme", "https", "URL scheme when the endpoint has none.")
	flags.BoolVar(&c.pathStyle, "path-style", false, "Address buckets as endpoint/bucket/key.")

	flags.StringVarP(&c.method, "method", "X", "GET", "HTTP method.")
	flags.StringVarP(&c.bucket, "bucket", "b", "", "Bucket name.")
	flags.StringVarP(&c.key, "key", "k", "", "Object key.")
	flags.StringArrayVarP(&c.headers, "header", "H", nil, "Header as name:value. Can be repeated.")
	flags.StringArrayVarP(&c.queries, "query", "q", nil, "Encoded query string. Can be repeated.")
	flags.StringVar(&c.bodyFile, "body-file", "", "File sent as the request body.")
	flags.StringVar(&c.contentType, "content-type", "", "Content type of the body.")
	flags.StringArrayVar(&c.checksums, "checksum", nil, "Additional body checksum (crc32, crc32c, crc64nvme, sha1, sha256). Can be repeated.")

	root.AddCommand(
		newSignCommand(c),
		newPresignCommand(c),
		newCanonicalCommand(c),
		newExecCommand(c),
	)

	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("variant") {
		cfg.Variant = c.variant
	}
	if flags.Changed("region") {
		cfg.Region = c.region
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = c.endpoint
	}
	if flags.Changed("scheme") {
		cfg.Scheme = c.scheme
	}
	if flags.Changed("path-style") {
		cfg.PathStyle = c.pathStyle
	}
	c.cfg = cfg

	if c.debug {
		c.logger, err = zap.NewDevelopment()
	} else {
		c.logger, err = zap.NewProduction()
	}
	return err
}

func (c *cli) newSigner() (*awsign.Signer, error) {
	variant, err := awsign.ParseVariant(c.cfg.Variant)
	if err != nil {
		return nil, err
	}
	return awsign.NewSigner(awsign.Config{
		Variant:   variant,
		Region:    c.cfg.Region,
		Endpoint:  c.cfg.Endpoint,
		Scheme:    c.cfg.Scheme,
		PathStyle: c.cfg.PathStyle,
		Logger:    c.logger,
	})
}

func (c *cli) credentials() awsign.Credentials {
	return awsign.Credentials{
		AccessKeyID:     c.cfg.AccessKeyID,
		SecretAccessKey: c.cfg.SecretAccessKey,
		SessionToken:    c.cfg.SessionToken,
	}
}

func (c *cli) newRequest() (*awsign.Request, error) {
	r := awsign.NewRequest(awsign.Method(strings.ToUpper(c.method)), c.bucket, c.key)

	for _, h := range c.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("header %q is not in name:value form", h)
		}
		r.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	for _, q := range c.queries {
		r.WithRawQuery(strings.TrimPrefix(q, "?"))
	}
	for _, name := range c.checksums {
		a, err := awsign.ParseChecksumAlgorithm(name)
		if err != nil {
			return nil, err
		}
		r.WithChecksum(a)
	}

	if c.bodyFile != "" {
		data, err := os.ReadFile(c.bodyFile)
		if err != nil {
			return nil, err
		}
		r.WithContent(awsign.NewBytesContent(data, c.contentType))
	} else if c.contentType != "" {
		r.WithHeader("Content-Type", c.contentType)
	}

	return r, nil
}

// prepare is shared by every subcommand.
func (c *cli) prepare() (*awsign.Signer, *awsign.Request, error) {
	s, err := c.newSigner()
	if err != nil {
		return nil, nil, err
	}
	r, err := c.newRequest()
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("prepared request",
		zap.String("method", c.method),
		zap.String("bucket", c.bucket),
		zap.String("key", c.key),
		zap.String("endpoint", c.cfg.Endpoint),
		zap.String("variant", c.cfg.Variant),
	)
	return s, r, nil
}
