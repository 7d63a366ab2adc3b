// Package db provides relational database configuration options.
package db

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options defines configuration options for the relational database.
type Options struct {
	// Driver selects the database driver (mysql, postgres, sqlite).
	Driver string `json:"driver" mapstructure:"driver"`

	// Host is the database server host (ignored for sqlite).
	Host string `json:"host" mapstructure:"host"`

	// Port is the database server port (ignored for sqlite).
	Port int `json:"port" mapstructure:"port"`

	// Username for authentication.
	Username string `json:"username" mapstructure:"username"`

	// Password for authentication.
	Password string `json:"-" mapstructure:"password"`

	// Database is the database name, or the file path for sqlite.
	Database string `json:"database" mapstructure:"database"`

	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`

	// LogLevel controls GORM logging (1 Silent, 2 Error, 3 Warn, 4 Info).
	LogLevel int `json:"log-level" mapstructure:"log-level"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                "sqlite",
		Host:                  "127.0.0.1",
		Port:                  3306,
		Username:              "root",
		Database:              "knowledge.db",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1,
	}
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, options.Join(prefixes...)+"db.driver", o.Driver, "Database driver (mysql, postgres, sqlite).")
	fs.StringVar(&o.Host, options.Join(prefixes...)+"db.host", o.Host, "Database host.")
	fs.IntVar(&o.Port, options.Join(prefixes...)+"db.port", o.Port, "Database port.")
	fs.StringVar(&o.Username, options.Join(prefixes...)+"db.username", o.Username, "Database username.")
	fs.StringVar(&o.Password, options.Join(prefixes...)+"db.password", o.Password, "Database password (DEPRECATED: use DB_PASSWORD env var instead).")
	fs.StringVar(&o.Database, options.Join(prefixes...)+"db.database", o.Database, "Database name, or file path for sqlite.")
	fs.IntVar(&o.MaxIdleConnections, options.Join(prefixes...)+"db.max-idle-connections", o.MaxIdleConnections, "Maximum idle connections.")
	fs.IntVar(&o.MaxOpenConnections, options.Join(prefixes...)+"db.max-open-connections", o.MaxOpenConnections, "Maximum open connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, options.Join(prefixes...)+"db.max-connection-life-time", o.MaxConnectionLifeTime, "Maximum connection life time.")
	fs.IntVar(&o.LogLevel, options.Join(prefixes...)+"db.log-level", o.LogLevel, "GORM log level (1 Silent, 2 Error, 3 Warn, 4 Info).")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	// 如果 CLI 参数为空，从环境变量读取
	if o.Password == "" {
		o.Password = os.Getenv("DB_PASSWORD")
	}

	var errs []error
	switch o.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported db driver: %q", o.Driver))
	}
	if o.Database == "" {
		errs = append(errs, fmt.Errorf("db database is required"))
	}
	return errs
}
