package kafka

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/IBM/sarama"

	"prettify/internal/logging"
	"prettify/internal/pipeline"
	"prettify/sink"
)

const (
	HeaderSeq   = "prettify-seq"
	HeaderError = "prettify-error"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

type driver struct {
	cfg  Config
	done chan struct{}

	mu sync.RWMutex // guards p; Push holds it while sending
	p  sarama.AsyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: topic is required")
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Errors = true
	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	d.attach(cfg, p)
	return nil
}

func (d *driver) attach(cfg Config, p sarama.AsyncProducer) {
	d.mu.Lock()
	d.cfg, d.p = cfg, p
	d.mu.Unlock()
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		for perr := range p.Errors() {
			logging.L().Warn("kafka-sink: publish failed", "topic", cfg.Topic, "err", perr.Err)
		}
	}()
}

// Push publishes the current output keyed by document. A failed snapshot
// still carries the retained output, plus the error in a header.
func (d *driver) Push(doc string, snap pipeline.Snapshot) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.p == nil {
		return fmt.Errorf("kafka-sink: not configured")
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderSeq), Value: []byte(strconv.FormatUint(snap.Seq, 10))},
	}
	if snap.Err != nil {
		headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderError), Value: []byte(snap.Err.Error())})
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic:   d.cfg.Topic,
		Key:     sarama.StringEncoder(doc),
		Value:   sarama.StringEncoder(snap.Output),
		Headers: headers,
	}
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	p := d.p
	d.p = nil
	d.mu.Unlock()
	if p == nil {
		return nil
	}
	p.AsyncClose()
	<-d.done
	return nil
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
