package kafka

import (
	"context"
	"errors"

	"prettify/internal/logging"

	"github.com/IBM/sarama"
)

// SaramaDriver consumes document snapshots from Kafka. The message key is
// the document id; a keyless message is attributed to its topic.
type SaramaDriver struct {
	cfg   Config
	cl    sarama.Client
	group sarama.ConsumerGroup
}

func (d *SaramaDriver) Configure(config Config) error {
	d.cfg = config
	if len(config.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	if len(config.Topics) == 0 {
		return errors.New("kafka: no topics configured")
	}

	ver, err := sarama.ParseKafkaVersion(config.Version)
	if err != nil {
		return err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = config.CommitInt
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}
	switch config.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	d.group, err = sarama.NewConsumerGroupFromClient(config.GroupID, d.cl)
	return err
}

func (d *SaramaDriver) Run(ctx context.Context, emit EmitFunc) error {
	handler := &groupHandler{emit: emit}

	go func() {
		for err := range d.group.Errors() {
			logging.L().Warn("sarama-driver: consumer error", "err", err)
		}
	}()

	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	if d.group != nil {
		_ = d.group.Close()
	}
	if d.cl != nil {
		_ = d.cl.Close()
	}
	return nil
}

type groupHandler struct {
	emit EmitFunc
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for {
		select {
		case <-sess.Context().Done():
			return sess.Context().Err()

		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			ed := Edit{Document: string(msg.Key), Text: string(msg.Value)}
			if ed.Document == "" {
				ed.Document = msg.Topic
			}
			if err := h.emit(ed); err != nil {
				return err
			}
			sess.MarkMessage(msg, "")
		}
	}
}
