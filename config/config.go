package config

type Config struct {
	DiscordAuth   DiscordAuth   `yaml:"discord_auth" validate:"required"`
	Inference     Inference     `yaml:"inference" validate:"required"`
	Scheduler     Scheduler     `yaml:"scheduler" validate:"required"`
	Notifications Notifications `yaml:"notifications" validate:"required"`
	Meta          Meta          `yaml:"meta" validate:"required"`
}

type DiscordAuth struct {
	Token    string `yaml:"token" comment:"Discord bot token" validate:"required"`
	ClientID string `yaml:"client_id" comment:"Discord Client ID" validate:"required"`
}

type Inference struct {
	APIKey         string `yaml:"api_key" comment:"DeepSeek API key" validate:"required"`
	Model          string `yaml:"model" default:"deepseek-chat" comment:"Model used for fallback time/title inference" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" default:"20" comment:"Per-call inference timeout" validate:"required,min=1"`
}

type Scheduler struct {
	IntervalSeconds int `yaml:"interval_seconds" default:"30" comment:"Reminder poll interval. Worst-case delivery latency equals this" validate:"required,min=5"`
}

type Notifications struct {
	VapidPublicKey  string `yaml:"vapid_public_key" comment:"Vapid Public Key (https://www.stephane-quantin.com/en/tools/generators/vapid-keys)" validate:"required"`
	VapidPrivateKey string `yaml:"vapid_private_key" comment:"Vapid Private Key (https://www.stephane-quantin.com/en/tools/generators/vapid-keys)" validate:"required"`
	Subscriber      string `yaml:"subscriber" default:"reminders@chime.bot" comment:"Webpush subscriber contact" validate:"required"`
}

type Meta struct {
	PostgresURL        string `yaml:"postgres_url" default:"postgresql:///chime" comment:"Postgres URL" validate:"required"`
	RedisURL           string `yaml:"redis_url" default:"redis://localhost:6379" comment:"Redis URL" validate:"required"`
	DiagnosticsPort    string `yaml:"diagnostics_port" default:":8089" comment:"Port for the internal diagnostics API" validate:"required"`
	PlatformTimeoutSec int    `yaml:"platform_timeout_seconds" default:"10" comment:"Per-recipient external platform call timeout" validate:"required,min=1"`
}
