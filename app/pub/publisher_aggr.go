package pub

type AggregatedBlockPublisher struct {
	publishers []BlockPublisher
}

func (publisher *AggregatedBlockPublisher) publish(msg AvroOrJsonMsg, tpe msgType, height int64, timestamp int64) {
	for _, pub := range publisher.publishers {
		pub.publish(msg, tpe, height, timestamp)
	}
}

func (publisher *AggregatedBlockPublisher) Stop() {
	for _, pub := range publisher.publishers {
		pub.Stop()
	}
}

func NewAggregatedBlockPublisher(publishers ...BlockPublisher) (publisher *AggregatedBlockPublisher) {
	publisher = &AggregatedBlockPublisher{
		publishers,
	}
	return
}
