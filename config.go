// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlfmt

import (
	"database/sql"
	"net/url"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/canonical/sqlfmt/dialect"
)

// Config describes a database connection.
//
// Either DSN holds a data source name understood by the driver, or it is built
// from the other fields. User and Pass are accepted as aliases of Username and
// Password.
type Config struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Database  string            `yaml:"database"`
	Username  string            `yaml:"username"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Pass      string            `yaml:"pass"`
	Options   map[string]string `yaml:"options"`
	CacheSize int               `yaml:"cache_size"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config %q", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot load config %q", path)
	}
	return cfg, nil
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot parse config")
	}
	if cfg.Username == "" {
		cfg.Username = cfg.User
	}
	if cfg.Password == "" {
		cfg.Password = cfg.Pass
	}
	cfg.User, cfg.Pass = "", ""
	if _, _, err := driverFor(cfg.Driver); err != nil {
		return Config{}, err
	}
	if cfg.CacheSize < 0 {
		return Config{}, errors.Errorf("invalid cache_size %d", cfg.CacheSize)
	}
	return cfg, nil
}

// driverFor returns the database/sql driver name and the dialect for a
// configured driver.
func driverFor(name string) (string, dialect.Dialect, error) {
	d, ok := dialect.ByName(name)
	if !ok {
		return "", nil, errors.Errorf("unknown driver %q", name)
	}
	switch d.(type) {
	case dialect.SQLite:
		return "sqlite3", d, nil
	case dialect.MySQL:
		return "mysql", d, nil
	case dialect.Postgres:
		return "pgx", d, nil
	case dialect.SQLServer:
		return "sqlserver", d, nil
	}
	return "", nil, errors.Errorf("no driver for dialect %T", d)
}

// DataSourceName returns the data source name passed to the driver.
func (cfg Config) DataSourceName() (string, error) {
	_, d, err := driverFor(cfg.Driver)
	if err != nil {
		return "", err
	}
	switch d.(type) {
	case dialect.MySQL:
		return cfg.mysqlDSN()
	}
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	query := url.Values{}
	for k, v := range cfg.Options {
		query.Set(k, v)
	}
	switch d.(type) {
	case dialect.SQLite:
		path := cfg.Database
		if path == "" {
			path = ":memory:"
		}
		if len(query) == 0 {
			return path, nil
		}
		return path + "?" + query.Encode(), nil
	case dialect.SQLServer:
		if cfg.Database != "" {
			query.Set("database", cfg.Database)
		}
		u := url.URL{Scheme: "sqlserver", Host: cfg.Host, User: cfg.userinfo(), RawQuery: query.Encode()}
		return u.String(), nil
	default:
		u := url.URL{Scheme: "postgres", Host: cfg.Host, User: cfg.userinfo(), RawQuery: query.Encode()}
		if cfg.Database != "" {
			u.Path = "/" + cfg.Database
		}
		return u.String(), nil
	}
}

func (cfg Config) userinfo() *url.Userinfo {
	switch {
	case cfg.Username == "":
		return nil
	case cfg.Password == "":
		return url.User(cfg.Username)
	}
	return url.UserPassword(cfg.Username, cfg.Password)
}

// mysqlDSN merges the configured fields into the DSN, if any.
func (cfg Config) mysqlDSN() (string, error) {
	mcfg := mysql.NewConfig()
	if cfg.DSN != "" {
		var err error
		mcfg, err = mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", errors.Wrap(err, "cannot parse mysql dsn")
		}
	}
	if cfg.Host != "" {
		mcfg.Net = "tcp"
		mcfg.Addr = cfg.Host
		if strings.HasPrefix(cfg.Host, "/") {
			mcfg.Net = "unix"
		}
	}
	if cfg.Database != "" {
		mcfg.DBName = cfg.Database
	}
	if cfg.Username != "" {
		mcfg.User = cfg.Username
	}
	if cfg.Password != "" {
		mcfg.Passwd = cfg.Password
	}
	if len(cfg.Options) > 0 && mcfg.Params == nil {
		mcfg.Params = map[string]string{}
	}
	for k, v := range cfg.Options {
		mcfg.Params[k] = v
	}
	return mcfg.FormatDSN(), nil
}

// Open opens the configured database.
func Open(cfg Config, opts ...Option) (*DB, error) {
	driverName, d, err := driverFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}
	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s database", cfg.Driver)
	}
	if cfg.CacheSize > 0 {
		opts = append([]Option{WithCacheSize(cfg.CacheSize)}, opts...)
	}
	return NewDB(sqldb, d, opts...), nil
}
