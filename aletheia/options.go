package aletheia

import "github.com/0xRadioAc7iv/go-aletheia/internal"

type Option func(*internal.Config)

func WithSaveDir(dir string) Option {
	return func(c *internal.Config) {
		c.SaveDir = dir
	}
}

func WithGamesFile(path string) Option {
	return func(c *internal.Config) {
		c.GamesFile = path
	}
}

// WithAccountID sets the Steam account id, in either its short or 64-bit form.
func WithAccountID(id string) Option {
	return func(c *internal.Config) {
		c.SteamAccountID = id
	}
}

func WithParallelism(n int) Option {
	return func(c *internal.Config) {
		c.Parallelism = n
	}
}

func WithMetricsFile(path string) Option {
	return func(c *internal.Config) {
		c.MetricsFile = path
	}
}

// WithRemote mirrors every written container to an S3-compatible bucket.
func WithRemote(bucket, endpoint, region string) Option {
	return func(c *internal.Config) {
		if c.Remote == nil {
			c.Remote = &internal.RemoteConfig{}
		}
		c.Remote.BucketName = bucket
		c.Remote.Endpoint = endpoint
		c.Remote.Region = region
	}
}

func WithRemoteCredentials(accessKeyID, accessKeySecret string) Option {
	return func(c *internal.Config) {
		if c.Remote == nil {
			c.Remote = &internal.RemoteConfig{}
		}
		c.Remote.AccessKeyID = accessKeyID
		c.Remote.AccessKeySecret = accessKeySecret
	}
}

// WithConfig replaces every setting with cfg. Options after it still apply.
func WithConfig(cfg *internal.Config) Option {
	return func(c *internal.Config) {
		*c = *cfg
	}
}
