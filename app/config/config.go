package config

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/viper"
	tmcfg "github.com/tendermint/tendermint/config"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
)

const AppConfigFileName = "app"

var configTemplate *template.Template

func init() {
	var err error
	if configTemplate, err = template.New("configFileTemplate").Parse(appConfigTemplate); err != nil {
		panic(err)
	}
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the config structs below
const appConfigTemplate = `# Database backend: goleveldb | cleveldb | boltdb | memdb
db_backend = "{{ .BaseConfig.DBBackend }}"
# Output level for logging, e.g. "main:info,state:info,*:error"
log_level = "{{ .BaseConfig.LogLevel }}"

[abci_server]
# Address the ABCI server listens on
address = "{{ .AbciConfig.Address }}"
# Transport protocol, socket or grpc
transport = "{{ .AbciConfig.Transport }}"

[store]
# Number of IAVL nodes cached per namespace
iavlCacheSize = {{ .StoreConfig.IAVLCacheSize }}
# Number of verified transaction signatures remembered between CheckTx and DeliverTx
sigCacheSize = {{ .StoreConfig.SigCacheSize }}

[log]
# Write logs to console instead of file
logToConsole = {{ .LogConfig.LogToConsole }}
# Directory of the log file, defaults to home when empty
logFileRoot = "{{ .LogConfig.LogFileRoot }}"
logFilePath = "{{ .LogConfig.LogFilePath }}"
# Number of log lines buffered before writing to file
logBuffSize = {{ .LogConfig.LogBuffSize }}

[publication]
# Capacity of the queue between Commit and the publisher
publicationChannelSize = {{ .PublicationConfig.PublicationChannelSize }}
# Append committed blocks as json lines under <home>/data/publication
publishLocal = {{ .PublicationConfig.PublishLocal }}
# Max size of one local publication file in megabytes
localMaxSize = {{ .PublicationConfig.LocalMaxSize }}
# Days to keep rotated local publication files
localMaxAge = {{ .PublicationConfig.LocalMaxAge }}
# Send committed blocks to kafka in avro
publishKafka = {{ .PublicationConfig.PublishKafka }}
blockTopic = "{{ .PublicationConfig.BlockTopic }}"
# Kafka brokers separated by ';'
blockKafka = "{{ .PublicationConfig.BlockKafka }}"
kafkaVersion = "{{ .PublicationConfig.KafkaVersion }}"

[api]
# Serve read-only http queries
enabled = {{ .APIConfig.Enabled }}
laddr = "{{ .APIConfig.ListenAddress }}"
# Requests served per second, 0 disables the limit
maxRequestsPerSecond = {{ .APIConfig.MaxRequestsPerSecond }}

[instrumentation]
# Expose prometheus metrics
prometheus = {{ .InstrumentationConfig.Prometheus }}
prometheusListenAddr = "{{ .InstrumentationConfig.PrometheusListenAddr }}"
namespace = "{{ .InstrumentationConfig.Namespace }}"
`

type AbciKitContext struct {
	*viper.Viper
	*AbciKitConfig
	Logger log.Logger
}

func NewDefaultContext() *AbciKitContext {
	return &AbciKitContext{
		viper.New(),
		DefaultAbciKitConfig(),
		log.NewTMLogger(log.NewSyncWriter(os.Stdout)),
	}
}

type AbciKitConfig struct {
	tmcfg.BaseConfig `mapstructure:",squash"`

	AbciConfig            *AbciConfig            `mapstructure:"abci_server"`
	StoreConfig           *StoreConfig           `mapstructure:"store"`
	LogConfig             *LogConfig             `mapstructure:"log"`
	PublicationConfig     *PublicationConfig     `mapstructure:"publication"`
	APIConfig             *APIConfig             `mapstructure:"api"`
	InstrumentationConfig *InstrumentationConfig `mapstructure:"instrumentation"`
}

func DefaultAbciKitConfig() *AbciKitConfig {
	return &AbciKitConfig{
		BaseConfig:            tmcfg.DefaultBaseConfig(),
		AbciConfig:            defaultAbciConfig(),
		StoreConfig:           defaultStoreConfig(),
		LogConfig:             defaultLogConfig(),
		PublicationConfig:     defaultPublicationConfig(),
		APIConfig:             defaultAPIConfig(),
		InstrumentationConfig: defaultInstrumentationConfig(),
	}
}

type AbciConfig struct {
	Address   string `mapstructure:"address"`
	Transport string `mapstructure:"transport"`
}

func defaultAbciConfig() *AbciConfig {
	return &AbciConfig{
		Address:   "tcp://0.0.0.0:26658",
		Transport: "socket",
	}
}

type StoreConfig struct {
	IAVLCacheSize int `mapstructure:"iavlCacheSize"`
	SigCacheSize  int `mapstructure:"sigCacheSize"`
}

func defaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		IAVLCacheSize: 10000,
		SigCacheSize:  30000,
	}
}

type LogConfig struct {
	LogToConsole bool   `mapstructure:"logToConsole"`
	LogFileRoot  string `mapstructure:"logFileRoot"`
	LogFilePath  string `mapstructure:"logFilePath"`
	LogBuffSize  int64  `mapstructure:"logBuffSize"`
}

func defaultLogConfig() *LogConfig {
	return &LogConfig{
		LogToConsole: true,
		LogFileRoot:  "",
		LogFilePath:  "abcikitd.log",
		LogBuffSize:  10000,
	}
}

type PublicationConfig struct {
	PublicationChannelSize int `mapstructure:"publicationChannelSize"`

	PublishLocal bool `mapstructure:"publishLocal"`
	LocalMaxSize int  `mapstructure:"localMaxSize"`
	LocalMaxAge  int  `mapstructure:"localMaxAge"`

	PublishKafka bool   `mapstructure:"publishKafka"`
	BlockTopic   string `mapstructure:"blockTopic"`
	BlockKafka   string `mapstructure:"blockKafka"`
	KafkaVersion string `mapstructure:"kafkaVersion"`
}

func defaultPublicationConfig() *PublicationConfig {
	return &PublicationConfig{
		PublicationChannelSize: 10000,

		PublishLocal: false,
		LocalMaxSize: 1024,
		LocalMaxAge:  7,

		PublishKafka: false,
		BlockTopic:   "blocks",
		BlockKafka:   "127.0.0.1:9092",
		KafkaVersion: "2.1.0",
	}
}

func (pubCfg PublicationConfig) ShouldPublishAny() bool {
	return pubCfg.PublishLocal || pubCfg.PublishKafka
}

type APIConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	ListenAddress        string `mapstructure:"laddr"`
	MaxRequestsPerSecond int    `mapstructure:"maxRequestsPerSecond"`
}

func defaultAPIConfig() *APIConfig {
	return &APIConfig{
		Enabled:              false,
		ListenAddress:        "tcp://127.0.0.1:8080",
		MaxRequestsPerSecond: 100,
	}
}

type InstrumentationConfig struct {
	Prometheus           bool   `mapstructure:"prometheus"`
	PrometheusListenAddr string `mapstructure:"prometheusListenAddr"`
	Namespace            string `mapstructure:"namespace"`
}

func defaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "abcikit",
	}
}

func (context *AbciKitContext) AppConfigFilePath() string {
	return filepath.Join(context.RootDir, "config", AppConfigFileName+".toml")
}

// ParseAppConfigInPlace overlays <home>/config/app.toml onto the context's config.
func (context *AbciKitContext) ParseAppConfigInPlace() error {
	context.Viper.SetConfigName(AppConfigFileName)
	context.Viper.AddConfigPath(filepath.Join(context.RootDir, "config"))
	if err := context.Viper.ReadInConfig(); err != nil {
		return err
	}
	return context.Viper.Unmarshal(context.AbciKitConfig)
}

// LoadOrWriteAppConfig writes the current config to app.toml on first start and
// parses the file otherwise.
func (context *AbciKitContext) LoadOrWriteAppConfig() error {
	path := context.AppConfigFilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cmn.EnsureDir(filepath.Dir(path), 0755); err != nil {
			return err
		}
		WriteConfigFile(path, context.AbciKitConfig)
		return nil
	}
	return context.ParseAppConfigInPlace()
}

func WriteConfigFile(configFilePath string, config *AbciKitConfig) {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	cmn.MustWriteFile(configFilePath, buffer.Bytes(), 0644)
}
