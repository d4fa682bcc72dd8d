package config

// Config 配置主体
type Config struct {
	Server             ServerConfig   `mapstructure:"server"`
	DB                 DBConfig       `mapstructure:"database"`
	Redis              RedisConfig    `mapstructure:"redis"`
	Mongo              MongoConfig    `mapstructure:"mongo"`
	LLM                LLMConfig      `mapstructure:"llm"`
	Kafka              KafkaConfig    `mapstructure:"kafka"`
	KafkaUsageConsumer KafkaConsumer  `mapstructure:"kafka_usage_consumer"`
	Logstash           LogstashConfig `mapstructure:"logstash"`
	Lead               LeadConfig     `mapstructure:"lead"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type LLMConfig struct {
	URL           string           `mapstructure:"url"`
	ApiKey        string           `mapstructure:"api_key"`
	PrimaryModel  string           `mapstructure:"primary_model"`
	FallbackModel string           `mapstructure:"fallback_model"`
	Timeout       int              `mapstructure:"timeout"`
	ThinkingMode  string           `mapstructure:"thinking_mode"`
	PromptsPath   PromptPathConfig `mapstructure:"prompts_path"`
}

type PromptPathConfig struct {
	IntentClassify string `mapstructure:"intent_classify"`
	BantExtract    string `mapstructure:"bant_extract"`
	Reply          string `mapstructure:"reply"`
}

type KafkaConfig struct {
	Brokers    []string       `mapstructure:"brokers"`
	Sasl       SaslConfig     `mapstructure:"sasl"`
	Consumer   ConsumerConfig `mapstructure:"consumer"`
	UsageTopic string         `mapstructure:"usage_topic"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// LogstashConfig 日志上报配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// LeadConfig 合格线索推送配置
type LeadConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Timeout    int    `mapstructure:"timeout"`
}
