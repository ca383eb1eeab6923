package main

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`

	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer  string        `env:"JWT_ISSUER" envDefault:"taskhub"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	AuditBuffer       int           `env:"AUDIT_BUFFER" envDefault:"256"`
	AuditWriteTimeout time.Duration `env:"AUDIT_WRITE_TIMEOUT" envDefault:"5s"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}
