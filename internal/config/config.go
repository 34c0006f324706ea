// Package config contains application configuration read from YAML file and
// environment.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/contracts/thankyoucoin"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	"github.com/nspcc-dev/txlogger/deploy"
	"github.com/nspcc-dev/txlogger/settlement"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all environment variables overriding the file.
const EnvPrefix = "TXLOGGER_"

// Config is the application configuration.
type Config struct {
	Storage Storage `yaml:"Storage" envPrefix:"STORAGE_"`
	Logger  Logger  `yaml:"Logger" envPrefix:"LOGGER_"`

	// Address of the account contracts are deployed by.
	Deployer string `yaml:"Deployer" env:"DEPLOYER"`

	Token   Token   `yaml:"Token" envPrefix:"TOKEN_"`
	Gateway Gateway `yaml:"Gateway" envPrefix:"GATEWAY_"`
	Indexer Indexer `yaml:"Indexer" envPrefix:"INDEXER_"`
	Tracing Tracing `yaml:"Tracing" envPrefix:"TRACING_"`
}

// Storage describes the ledger backing store.
type Storage struct {
	// One of inmemory, boltdb, leveldb.
	Type string `yaml:"Type" env:"TYPE"`
	// Database file (boltdb) or directory (leveldb).
	Path string `yaml:"Path" env:"PATH"`
}

// Logger describes the application log.
type Logger struct {
	Level    string `yaml:"Level" env:"LEVEL"`
	Encoding string `yaml:"Encoding" env:"ENCODING"`
}

// Token describes ThankYouCoin deployment.
type Token struct {
	// Address of the owner, the deployer if empty.
	Owner string `yaml:"Owner" env:"OWNER"`
	// Whole coins issued on the first deployment.
	InitialSupply string `yaml:"InitialSupply" env:"INITIAL_SUPPLY"`
}

// Gateway describes the transfer gateway deployment.
type Gateway struct {
	// native or token.
	Mode string `yaml:"Mode" env:"MODE"`
	// Minimum leg amount in whole units of the settled asset.
	MinimumAmount string `yaml:"MinimumAmount" env:"MINIMUM_AMOUNT"`
}

// Indexer describes the transfer record index.
type Indexer struct {
	// SQLite database file, indexing is disabled if empty.
	Path string `yaml:"Path" env:"PATH"`
}

// Tracing describes export of the invocation traces.
type Tracing struct {
	Enabled bool `yaml:"Enabled" env:"ENABLED"`
	// OTLP/HTTP collector URL, e.g. http://localhost:4318.
	Endpoint string `yaml:"Endpoint" env:"ENDPOINT"`
	// Service name resource attribute.
	Service string `yaml:"Service" env:"SERVICE"`
}

// Default returns configuration with all defaults set.
func Default() Config {
	return Config{
		Storage: Storage{Type: dbconfig.InMemoryDB},
		Logger:  Logger{Level: "info", Encoding: "console"},
		Token:   Token{InitialSupply: "1024"},
		Gateway: Gateway{Mode: txlogger.ModeNative.String(), MinimumAmount: "0.001"},
		Tracing: Tracing{Service: "txlogger"},
	}
}

// Load reads the configuration file at path over the defaults and applies
// environment overrides. The file is optional if path is empty. Resulting
// configuration is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}

		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all values can be used.
func (c Config) Validate() error {
	if _, err := c.Storage.DBConfiguration(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if _, err := zap.ParseAtomicLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if _, err := c.DeployerAccount(); err != nil {
		return err
	}
	if _, err := c.Token.Params(); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if _, err := c.Gateway.Params(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks that enabled tracing can be set up.
func (t Tracing) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Endpoint == "" {
		return errors.New("missing collector endpoint")
	}
	if t.Service == "" {
		return errors.New("missing service name")
	}
	return nil
}

// DeployerAccount returns parsed deployer address.
func (c Config) DeployerAccount() (util.Uint160, error) {
	if c.Deployer == "" {
		return util.Uint160{}, errors.New("missing deployer address")
	}
	h, err := address.StringToUint160(c.Deployer)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid deployer address %q: %w", c.Deployer, err)
	}
	return h, nil
}

// DBConfiguration returns configuration of the ledger store.
func (s Storage) DBConfiguration() (dbconfig.DBConfiguration, error) {
	res := dbconfig.DBConfiguration{Type: s.Type}

	switch s.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.BoltDB:
		if s.Path == "" {
			return res, errors.New("missing boltdb file path")
		}
		res.BoltDBOptions.FilePath = s.Path
	case dbconfig.LevelDB:
		if s.Path == "" {
			return res, errors.New("missing leveldb directory path")
		}
		res.LevelDBOptions.DataDirectoryPath = s.Path
	default:
		return res, fmt.Errorf("unsupported type %q", s.Type)
	}

	return res, nil
}

// Build constructs the logger.
func (l Logger) Build() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, err
	}

	c := zap.NewProductionConfig()
	c.Level = lvl
	c.Encoding = l.Encoding
	c.Sampling = nil
	if c.Encoding == "console" {
		c.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	return c.Build()
}

// Params returns ThankYouCoin deployment parameters.
func (t Token) Params() (deploy.CoinPrm, error) {
	var res deploy.CoinPrm

	if t.Owner != "" {
		h, err := address.StringToUint160(t.Owner)
		if err != nil {
			return res, fmt.Errorf("invalid owner address %q: %w", t.Owner, err)
		}
		res.Owner = h
	}

	supply, err := ParseAmount(t.InitialSupply, thankyoucoin.Decimals)
	if err != nil {
		return res, fmt.Errorf("initial supply: %w", err)
	}
	res.InitialSupply = supply

	return res, nil
}

// Params returns gateway deployment parameters. Minimum amount is converted
// with the precision of the settled asset.
func (g Gateway) Params() (deploy.GatewayPrm, error) {
	var res deploy.GatewayPrm

	mode, err := txlogger.ParseMode(g.Mode)
	if err != nil {
		return res, err
	}
	res.Mode = mode

	prec := settlement.NativeDecimals
	if mode == txlogger.ModeToken {
		prec = thankyoucoin.Decimals
	}

	res.MinimumAmount, err = ParseAmount(g.MinimumAmount, prec)
	if err != nil {
		return res, fmt.Errorf("minimum amount: %w", err)
	}
	if res.MinimumAmount < 1 {
		return res, fmt.Errorf("minimum amount %s is less than the smallest unit", g.MinimumAmount)
	}

	return res, nil
}

// ParseAmount converts decimal string into integer amount of the smallest
// units.
func ParseAmount(s string, prec int) (int64, error) {
	v, err := fixedn.FromString(s, prec)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, fmt.Errorf("amount %q is out of range", s)
	}
	return v.Int64(), nil
}

// FormatAmount converts integer amount of the smallest units into decimal
// string.
func FormatAmount(v int64, prec int) string {
	return fixedn.ToString(big.NewInt(v), prec)
}
