package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"junctionflow/config"
	"junctionflow/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// LiveBatch is the message relayed to live subscribers after each stored run.
type LiveBatch struct {
	RecordDate string                  `json:"record_date"`
	RecordTime string                  `json:"record_time"`
	Records    []models.JunctionRecord `json:"records"`
}

func newLiveBatch(records []models.JunctionRecord) LiveBatch {
	b := LiveBatch{Records: records}
	if len(records) > 0 {
		b.RecordDate = records[0].RecordDate
		b.RecordTime = records[0].RecordTime
	}
	return b
}

type channelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisPublisher publishes each batch as one JSON message on a pub/sub channel.
type RedisPublisher struct {
	cache   channelPublisher
	channel string
}

func NewRedisPublisher(cache channelPublisher, channel string) *RedisPublisher {
	return &RedisPublisher{cache: cache, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, records []models.JunctionRecord) error {
	return p.cache.Publish(ctx, p.channel, newLiveBatch(records))
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheInvalidator drops the API's cached junction pages once a new batch is
// stored, so listings never lag a completed run.
type CacheInvalidator struct {
	cache prefixDeleter
}

func NewCacheInvalidator(cache prefixDeleter) *CacheInvalidator {
	return &CacheInvalidator{cache: cache}
}

func (p *CacheInvalidator) Name() string { return "cache" }

func (p *CacheInvalidator) Publish(ctx context.Context, _ []models.JunctionRecord) error {
	return p.cache.DeletePrefix(ctx, ListCachePrefix)
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes one retained message per record under
// <prefix>/<junction name>.
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	timeout time.Duration
}

func NewMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), timeout: 5 * time.Second}
}

// ConnectMQTT dials the broker in cfg.
func ConnectMQTT(cfg config.MQTTConfig) (mqtt.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "junctionflow-" + time.Now().Format("20060102150405")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(5 * time.Second)
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.URL, err)
	}
	return client, nil
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

func (p *MQTTPublisher) Topic(junctionName string) string {
	// + and # are wildcards and may not appear in a published topic.
	name := strings.NewReplacer("+", "_", "#", "_", "/", "_").Replace(junctionName)
	return p.prefix + "/" + name
}

func (p *MQTTPublisher) Publish(ctx context.Context, records []models.JunctionRecord) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		token := p.client.Publish(p.Topic(r.JunctionName), 1, true, payload)
		if !token.WaitTimeout(p.timeout) {
			return fmt.Errorf("mqtt publish to %s timed out", p.Topic(r.JunctionName))
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish to %s: %w", p.Topic(r.JunctionName), err)
		}
	}
	return nil
}
