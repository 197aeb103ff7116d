package pub

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/deathowl/go-metrics-prometheus"
	"github.com/eapache/go-resiliency/breaker"
	"github.com/linkedin/goavro"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/config"
)

const (
	KafkaBrokerSep = ";"

	maxBackOff = 64 * time.Second
)

// KafkaBlockPublisher sends avro encoded blocks to a single topic.
type KafkaBlockPublisher struct {
	blockCodec *goavro.Codec
	topic      string
	producer   sarama.SyncProducer
	logger     log.Logger
}

func newSaramaConfig(version string) (config *sarama.Config, err error) {
	config = sarama.NewConfig()
	if config.Version, err = sarama.ParseKafkaVersion(version); err != nil {
		return nil, err
	}
	if config.ClientID, err = os.Hostname(); err != nil {
		return nil, err
	}

	config.Producer.Partitioner = sarama.NewRandomPartitioner
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 20
	config.Producer.Compression = sarama.CompressionGZIP

	// keeps blocks of one producer in order
	// Refer: https://github.com/Shopify/sarama/issues/718
	config.Net.MaxOpenRequests = 1
	return config, nil
}

func (publisher *KafkaBlockPublisher) prepareMessage(
	msgId string,
	timeStamp int64,
	msgTpe msgType,
	message []byte) *sarama.ProducerMessage {
	return &sarama.ProducerMessage{
		Topic:     publisher.topic,
		Partition: -1,
		Key:       sarama.StringEncoder(fmt.Sprintf("%s_%d_%s", msgId, timeStamp, msgTpe.String())),
		Value:     sarama.ByteEncoder(message),
	}
}

func (publisher *KafkaBlockPublisher) publish(avroMessage AvroOrJsonMsg, tpe msgType, height, timestamp int64) {
	msg, err := publisher.marshal(avroMessage, tpe)
	if err != nil {
		publisher.logger.Error("failed to publish", "topic", publisher.topic, "msg", avroMessage.String(), "err", err)
		return
	}
	kafkaMsg := publisher.prepareMessage(strconv.FormatInt(height, 10), timestamp, tpe, msg)
	if partition, offset, err := publisher.publishWithRetry(kafkaMsg); err == nil {
		publisher.logger.Info("published", "topic", publisher.topic, "msg", avroMessage.String(), "offset", offset, "partition", partition)
	} else {
		publisher.logger.Error("failed to publish", "topic", publisher.topic, "msg", avroMessage.String(), "err", err)
	}
}

func (publisher *KafkaBlockPublisher) Stop() {
	publisher.logger.Debug("start to stop KafkaBlockPublisher")
	// nil check because this method would be called when we failed to create producer
	if publisher.producer != nil {
		if err := publisher.producer.Close(); err != nil {
			publisher.logger.Error("failed to stop producer", "topic", publisher.topic, "err", err)
		}
	}
	publisher.logger.Debug("finished stop KafkaBlockPublisher")
}

func isRetriable(err error) bool {
	return err == sarama.ErrOutOfBrokers || err == breaker.ErrBreakerOpen
}

func nextBackOff(backOff time.Duration) time.Duration {
	if backOff <<= 1; backOff > maxBackOff {
		return maxBackOff
	}
	return backOff
}

// endlessly retry on retriable errors, the abnormal situation should be reported by prometheus alarm
func connectWithRetry(
	logger log.Logger,
	hostports []string,
	config *sarama.Config) (producer sarama.SyncProducer, err error) {
	backOff := time.Second

	for {
		if producer, err = sarama.NewSyncProducer(hostports, config); isRetriable(err) {
			backOff = nextBackOff(backOff)
			logger.Error("encountered retriable error, retrying...", "after", backOff, "err", err)
			time.Sleep(backOff)
		} else {
			return
		}
	}
}

// endlessly retry on retriable errors, the abnormal situation should be reported by prometheus alarm
func (publisher *KafkaBlockPublisher) publishWithRetry(
	message *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	backOff := time.Second

	for {
		if partition, offset, err = publisher.producer.SendMessage(message); isRetriable(err) {
			backOff = nextBackOff(backOff)
			publisher.logger.Error("encountered retriable error, retrying...", "after", backOff, "err", err)
			time.Sleep(backOff)
		} else {
			return
		}
	}
}

func (publisher *KafkaBlockPublisher) marshal(msg AvroOrJsonMsg, tpe msgType) ([]byte, error) {
	return marshal(publisher.blockCodec, msg, tpe)
}

func marshal(codec *goavro.Codec, msg AvroOrJsonMsg, tpe msgType) ([]byte, error) {
	if tpe != blockTpe {
		return nil, fmt.Errorf("doesn't support marshal kafka msg tpe: %s", tpe.String())
	}
	return codec.BinaryFromNative(nil, msg.ToNativeMap())
}

func newBlockCodec() (*goavro.Codec, error) {
	return goavro.NewCodec(blockSchema)
}

func NewKafkaBlockPublisher(
	logger log.Logger,
	cfg *config.PublicationConfig) (*KafkaBlockPublisher, error) {
	sarama.Logger = saramaLogger{logger}

	codec, err := newBlockCodec()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize avro codec")
	}
	saramaCfg, err := newSaramaConfig(cfg.KafkaVersion)
	if err != nil {
		return nil, errors.Wrap(err, "invalid kafka config")
	}
	producer, err := connectWithRetry(logger, strings.Split(cfg.BlockKafka, KafkaBrokerSep), saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create block producer")
	}

	// we have to use the same prometheus registerer with the node
	// so that we can share same host:port for prometheus daemon
	pClient := prometheusmetrics.NewPrometheusProvider(
		saramaCfg.MetricRegistry,
		"",
		"publication",
		prometheus.DefaultRegisterer,
		1*time.Second)
	go pClient.UpdatePrometheusMetrics()

	return &KafkaBlockPublisher{
		blockCodec: codec,
		topic:      cfg.BlockTopic,
		producer:   producer,
		logger:     logger,
	}, nil
}
