package internal

import "time"

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`

	BufferSize           int  `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int  `env:"CONNECTION_BUFFER_SIZE,required=true"`
	NumberOfWorkers      int  `env:"NUMBER_OF_WORKERS,required=true"`
	LimitMessages        *int `env:"LIMIT_MESSAGES"`

	SinkTimeout      time.Duration `env:"SINK_TIMEOUT,required=true"`
	DeliveryTimeout  time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	SubscribeTimeout time.Duration `env:"SUBSCRIBE_TIMEOUT,required=true"`

	ProviderURL         string        `env:"PROVIDER_URL,required=true"`
	ProviderTimeout     time.Duration `env:"PROVIDER_TIMEOUT,required=true"`
	ProviderMaxAttempts int           `env:"PROVIDER_MAX_ATTEMPTS,default=2"`
	FanoutStrategy      string        `env:"FANOUT_STRATEGY,default=tiered"`

	BadgerFilepath   string `env:"BADGER_FILEPATH,required=true"`
	LogLevel         string `env:"LOG_LEVEL,required=true"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,required=true"`
}
