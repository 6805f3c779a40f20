package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/config"
)

// ClimateAPI is the part of the platform the bridge drives.
type ClimateAPI interface {
	States() []climate.State
	Subscribe(fn func(climate.State)) func()
	CallService(ctx context.Context, entityID, service string, data map[string]any) error
}

// Options configures the broker connection and topic layout.
type Options struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	DiscoveryPrefix string
	TopicPrefix     string
	CallTimeout     time.Duration
}

// OptionsFromConfig resolves options, reading the password file if set.
func OptionsFromConfig(cfg *config.MQTTConfig) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("mqtt config is required")
	}
	opts := Options{
		Broker:          cfg.Broker,
		Username:        cfg.Username,
		ClientID:        cfg.ClientID,
		DiscoveryPrefix: cfg.DiscoveryPrefix,
		TopicPrefix:     cfg.TopicPrefix,
	}
	if path := strings.TrimSpace(cfg.PasswordFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Options{}, fmt.Errorf("read mqtt password: %w", err)
		}
		opts.Password = strings.TrimSpace(string(data))
	}
	return opts, nil
}

// Bridge mirrors climate entities to MQTT using Home Assistant discovery and
// turns command topics into service calls.
type Bridge struct {
	api    ClimateAPI
	opts   Options
	topics Topics
	client mqtt.Client

	commands chan Command
	done     chan struct{}
	stopOnce sync.Once
	worker   sync.WaitGroup

	mu          sync.Mutex
	announced   map[string]bool
	unsubscribe func()
}

const commandQueueSize = 64

func New(api ClimateAPI, opts Options) *Bridge {
	if opts.ClientID == "" {
		opts.ClientID = config.DefaultMQTTClientID
	}
	if opts.DiscoveryPrefix == "" {
		opts.DiscoveryPrefix = config.DefaultMQTTDiscoveryPrefix
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = config.DefaultMQTTTopicPrefix
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	return &Bridge{
		api:       api,
		opts:      opts,
		topics:    Topics{discoveryPrefix: opts.DiscoveryPrefix, topicPrefix: opts.TopicPrefix},
		commands:  make(chan Command, commandQueueSize),
		done:      make(chan struct{}),
		announced: make(map[string]bool),
	}
}

// Start connects to the broker and begins mirroring. Reconnects republish
// discovery and state.
func (b *Bridge) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.opts.Broker)
	opts.SetUsername(b.opts.Username)
	opts.SetPassword(b.opts.Password)
	opts.SetClientID(b.opts.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(b.topics.Status(), payloadOffline, 1, true)
	opts.OnConnect = func(client mqtt.Client) {
		b.onConnect(client)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("component", "mqtt").Msg("broker connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(15*time.Second) && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	b.client = client
	b.startWorker()

	b.mu.Lock()
	b.unsubscribe = b.api.Subscribe(b.publishState)
	b.mu.Unlock()
	return nil
}

// Stop marks the bridge offline, disconnects and waits for the command in
// flight to finish. Queued commands are dropped.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
	defer b.worker.Wait()

	b.mu.Lock()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.mu.Unlock()

	if b.client == nil {
		return
	}
	if b.client.IsConnected() {
		b.client.Publish(b.topics.Status(), 1, true, payloadOffline).WaitTimeout(2 * time.Second)
	}
	b.client.Disconnect(250)
}

func (b *Bridge) onConnect(client mqtt.Client) {
	logger := log.With().Str("component", "mqtt").Logger()
	logger.Info().Str("broker", b.opts.Broker).Msg("connected")

	if token := client.Subscribe(b.topics.CommandFilter(), 1, b.handleCommand); token.Wait() && token.Error() != nil {
		logger.Error().Err(token.Error()).Msg("subscribe to command topics failed")
	}

	b.mu.Lock()
	b.announced = make(map[string]bool)
	b.mu.Unlock()

	b.publish(client, b.topics.Status(), payloadOnline, true)
	for _, state := range b.api.States() {
		b.publishStateWith(client, state)
	}
}

func (b *Bridge) publishState(state climate.State) {
	if b.client == nil {
		return
	}
	b.publishStateWith(b.client, state)
}

func (b *Bridge) publishStateWith(client mqtt.Client, state climate.State) {
	objectID := ObjectID(state.EntityID)

	b.mu.Lock()
	announce := !b.announced[objectID]
	b.announced[objectID] = true
	b.mu.Unlock()

	if announce {
		payload, err := json.Marshal(b.topics.DiscoveryConfig(state))
		if err != nil {
			log.Error().Err(err).Str("component", "mqtt").Str("entity_id", state.EntityID).Msg("encode discovery config")
			return
		}
		b.publish(client, b.topics.Config(objectID), payload, true)
	}

	availability := payloadOffline
	if state.Available {
		availability = payloadOnline
	}
	b.publish(client, b.topics.Availability(objectID), availability, true)

	payload, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Str("component", "mqtt").Str("entity_id", state.EntityID).Msg("encode state")
		return
	}
	b.publish(client, b.topics.State(objectID), payload, true)
}

func (b *Bridge) publish(client mqtt.Client, topic string, payload any, retained bool) {
	token := client.Publish(topic, 1, retained, payload)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Warn().Err(token.Error()).Str("component", "mqtt").Str("topic", topic).Msg("publish failed")
	}
}

func (b *Bridge) handleCommand(_ mqtt.Client, msg mqtt.Message) {
	logger := log.With().Str("component", "mqtt").Str("topic", msg.Topic()).Logger()

	cmd, err := b.topics.ParseCommand(msg.Topic(), msg.Payload())
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring command")
		return
	}

	// paho delivers on its router goroutine; hand off without blocking it.
	select {
	case b.commands <- cmd:
	case <-b.done:
	default:
		logger.Warn().Str("entity_id", cmd.EntityID).Str("service", cmd.Service).Msg("command queue full, dropping command")
	}
}

func (b *Bridge) startWorker() {
	b.worker.Add(1)
	go func() {
		defer b.worker.Done()
		for {
			select {
			case <-b.done:
				return
			case cmd := <-b.commands:
				b.apply(cmd)
			}
		}
	}()
}

// apply runs one command at a time so commands take effect in the order the
// broker delivered them.
func (b *Bridge) apply(cmd Command) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.CallTimeout)
	defer cancel()
	if err := b.api.CallService(ctx, cmd.EntityID, cmd.Service, cmd.Data); err != nil {
		log.Warn().Err(err).Str("component", "mqtt").Str("entity_id", cmd.EntityID).Str("service", cmd.Service).Msg("command failed")
	}
}
