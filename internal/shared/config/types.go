package config

import "fmt"

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN returns the driver specific connection string.
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
	case "sqlite":
		return d.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	OutputPath string `mapstructure:"output_path"`
}

type MigrationConfig struct {
	Strategy               string `mapstructure:"strategy" validate:"oneof=revision goose golang_migrate"`
	ScriptsPath            string `mapstructure:"scripts_path"`
	RevisionsPath          string `mapstructure:"revisions_path"`
	VersionTable           string `mapstructure:"version_table" validate:"required"`
	TransactionPerRevision bool   `mapstructure:"transaction_per_revision"`
}
