package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"featurepull/sink"
)

type Config struct {
	Brokers []string
	Topic   string
	Acks    int16 // 0,1,-1
}

type producerFactory func(brokers []string, cfg *sarama.Config) (sarama.SyncProducer, error)

type driver struct {
	cfg         Config
	p           sarama.SyncProducer
	newProducer producerFactory
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true // required by SyncProducer

	if d.newProducer == nil {
		d.newProducer = sarama.NewSyncProducer
	}
	var err error
	d.p, err = d.newProducer(cfg.Brokers, sc)
	return err
}

// Publish sends ev keyed by project and waits for the broker ack.
func (d *driver) Publish(ctx context.Context, ev sink.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = d.p.SendMessage(&sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(ev.Project),
		Value: sarama.ByteEncoder(val),
	})
	if err != nil {
		return fmt.Errorf("kafka-sink: publish to %s: %w", d.cfg.Topic, err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	p := d.p
	d.p = nil
	return p.Close()
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
