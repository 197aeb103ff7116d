package pub

import (
	"fmt"
	"time"

	tmlog "github.com/tendermint/tendermint/libs/log"
)

type BlockPublisher interface {
	publish(msg AvroOrJsonMsg, tpe msgType, height int64, timestamp int64)
	Stop()
}

// Publish drains toPublishCh into publisher until the channel is closed.
func Publish(
	publisher BlockPublisher,
	metrics *Metrics,
	logger tmlog.Logger,
	toPublishCh <-chan BlockInfoToPublish) {
	var lastPublishedTime time.Time
	for blockInfo := range toPublishCh {
		logger.Debug("publisher queue status", "size", len(toPublishCh))
		metrics.PublicationQueueSize.Set(float64(len(toPublishCh)))

		publishBlockTime := Timer(logger, fmt.Sprintf("publish block, height=%d", blockInfo.height), func() {
			block := blockFromInfo(blockInfo)
			publisher.publish(block, blockTpe, blockInfo.height, blockInfo.timestamp)

			metrics.NumTxs.Set(float64(block.NumOfTxs))
			metrics.PublicationHeight.Set(float64(blockInfo.height))
			if !lastPublishedTime.IsZero() {
				blockInterval := time.Since(lastPublishedTime)
				metrics.PublicationBlockIntervalMs.Set(float64(blockInterval.Nanoseconds() / int64(time.Millisecond)))
			}
			lastPublishedTime = time.Now()
		})

		metrics.PublishBlockTimeMs.Set(float64(publishBlockTime))
	}
	publisher.Stop()
}

func Timer(logger tmlog.Logger, description string, op func()) (durationMs int64) {
	start := time.Now()
	op()
	durationMs = time.Since(start).Nanoseconds() / int64(time.Millisecond)
	logger.Debug(description, "durationMs", durationMs)
	return durationMs
}
