package messagequeue

// MessageQueue abstracts the broker used to fan out aggregation lifecycle
// events to downstream consumers (dashboards, alerting).
type MessageQueue interface {
	Publish(queueName string, body []byte) error
	Close() error
}
