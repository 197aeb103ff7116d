package pub

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	tmLogger "github.com/tendermint/tendermint/libs/log"

	"github.com/bnb-chain/abcikit/app/config"
)

// Publish blocks to the publication dir in abcikitd home
// each message will be in json format one line in file
// file can be compressed and auto-rotated
type LocalBlockPublisher struct {
	fileWriter *lumberjack.Logger
	producer   *log.Logger
	tmLogger   tmLogger.Logger
}

func (publisher *LocalBlockPublisher) publish(msg AvroOrJsonMsg, tpe msgType, height int64, timestamp int64) {
	if jsonBytes, err := json.Marshal(msg); err == nil {
		if err := publisher.producer.Output(2, fmt.Sprintln(string(jsonBytes))); err != nil {
			publisher.tmLogger.Error("failed to publish msg", "err", err, "height", height, "msg", msg.String())
		}
	} else {
		publisher.tmLogger.Error("failed to publish msg", "err", err, "height", height, "msg", msg.String())
	}
}

func (publisher *LocalBlockPublisher) Stop() {
	if err := publisher.fileWriter.Close(); err != nil {
		publisher.tmLogger.Error("failed to close local publication file", "err", err)
	}
	publisher.tmLogger.Info("local publisher stopped")
}

func NewLocalBlockPublisher(
	dataPath string,
	tmLogger tmLogger.Logger,
	config *config.PublicationConfig) (publisher *LocalBlockPublisher) {
	fileWriter := &lumberjack.Logger{
		Filename: filepath.Join(dataPath, "publication", "blocks.json"),
		MaxSize:  config.LocalMaxSize,
		MaxAge:   config.LocalMaxAge,
		Compress: true,
	}
	publisher = &LocalBlockPublisher{
		fileWriter,
		log.New(fileWriter, "", 0),
		tmLogger,
	}

	return
}
