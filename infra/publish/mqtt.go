package publish

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/infra/logger"
)

// Client is the subset of the paho client the publisher needs. It exists so
// tests can swap in a recording fake without a broker.
type Client interface {
	IsConnected() bool
	Disconnect(uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Config holds the MQTT connection parameters.
type Config struct {
	Enabled     bool        `json:"enabled"`
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	TLSConfig   *tls.Config `json:"-"`
}

// SchedulePayload is the wire format of one published schedule window.
type SchedulePayload struct {
	Entity    string    `json:"entity"`
	RunID     string    `json:"run_id"`
	StartStep int       `json:"start_step"`
	StepSize  string    `json:"step_size"`
	PowerKW   []float64 `json:"power_kw"`
	Sent      time.Time `json:"sent"`
}

// Publisher pushes solved schedule windows to an MQTT broker, one topic per
// entity.
type Publisher struct {
	cli    Client
	prefix string
	qos    byte
	log    logger.Logger
}

// NewPublisher connects to the broker and returns a publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(5 * time.Second)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLSConfig != nil {
		opts.SetTLSConfig(cfg.TLSConfig)
	}
	p := &Publisher{prefix: cfg.TopicPrefix, qos: cfg.QoS, log: logger.New("schedule-publisher")}
	if p.prefix == "" {
		p.prefix = "districtsched"
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		p.log.Errorf("connection lost: %v", err)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = cli
	return p, nil
}

// PublishWindow publishes the current window of every entity's schedule.
func (p *Publisher) PublishWindow(runID string, grid *model.TimeGrid, entities []entity.Entity) error {
	for _, e := range entities {
		payload := SchedulePayload{
			Entity:    e.ID(),
			RunID:     runID,
			StartStep: grid.CurrentStep(),
			StepSize:  grid.StepSize.String(),
			PowerKW:   e.Schedule().Window(grid),
			Sent:      time.Now().UTC(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("publish: marshal %s: %w", e.ID(), err)
		}
		topic := fmt.Sprintf("%s/%s/schedule", p.prefix, e.ID())
		token := p.cli.Publish(topic, p.qos, false, data)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish: %s: %w", topic, err)
		}
		p.log.Debugf("published %d steps to %s", len(payload.PowerKW), topic)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
