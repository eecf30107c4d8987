// Command button-sensor watches a GPIO push-button and publishes press and
// release notifications to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

// notifyBuffer is how many edge notifications may queue before new ones are dropped.
const notifyBuffer = 64

type options struct {
	cfg        config.Config
	printState bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the configuration from defaults, the optional --config
// file, and then any flags set explicitly on the command line.
func parseFlags(args []string) (options, error) {
	def := config.Default()

	fs := pflag.NewFlagSet("button-sensor", pflag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (flags override it)")
	pin := fs.Int("pin", def.Pin, "GPIO line offset of the button")
	descriptor := fs.String("descriptor", def.Descriptor, `GPIO descriptor, e.g. "g:17:in:pullup" (instead of --pin)`)
	chip := fs.String("chip", def.Chip, "GPIO chip")
	edge := fs.String("edge", def.Edge, "Interrupt edge: rising, falling or both")
	pull := fs.String("pull", def.Pull, "Input bias: none, up or down")
	activeLow := fs.Bool("active-low", def.ActiveLow, "Treat a low level as pressed")
	name := fs.String("name", def.Name, "Sensor name used in MQTT topics")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	printState := fs.Bool("print-state", false, "Print current state and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return options{}, err
		}
	}

	overrides := map[string]func(){
		"pin":        func() { cfg.Pin, cfg.Descriptor = *pin, "" },
		"descriptor": func() { cfg.Descriptor, cfg.Pin = *descriptor, config.NoPin },
		"chip":       func() { cfg.Chip = *chip },
		"edge":       func() { cfg.Edge = *edge },
		"pull":       func() { cfg.Pull = *pull },
		"active-low": func() { cfg.ActiveLow = *activeLow },
		"name":       func() { cfg.Name = *name },
		"broker":     func() { cfg.Broker = *broker },
		"http":       func() { cfg.HTTP = *httpAddr },
	}
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})

	if err := cfg.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid config: %w", err)
	}
	return options{cfg: cfg, printState: *printState}, nil
}

// openSensor constructs the sensor by pin or by descriptor.
func openSensor(cfg config.Config, open gpio.Opener) (*button.Sensor, error) {
	bcfg, err := cfg.ButtonConfig()
	if err != nil {
		return nil, err
	}
	bcfg.Open = open
	if cfg.Descriptor != "" {
		return button.NewFromDescriptor(cfg.Descriptor, bcfg)
	}
	return button.New(cfg.Pin, bcfg)
}

func run(opts options) error {
	cfg := opts.cfg

	// Initialize GPIO
	sensor, err := openSensor(cfg, nil)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := sensor.Close(); err != nil {
			log.Printf("gpio close: %v", err)
		}
	}()

	// Print state mode
	if opts.printState {
		pressed, value, err := sensor.State()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("%s: %s (value=%d)\n", sensor.Name(), mqtt.StateOf(pressed), value)
		return nil
	}

	edge, err := gpio.ParseEdge(cfg.Edge)
	if err != nil {
		return err
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.Broker, sensor.Name())
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(sensor.Name(), time.Now(), status.Config{
		Pin:       sensor.Pin(),
		Chip:      cfg.Chip,
		Edge:      edge.String(),
		Pull:      cfg.Pull,
		ActiveLow: sensor.ActiveLow(),
		Broker:    cfg.Broker,
		HTTPAddr:  cfg.HTTP,
	})

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	n := newNotifier(notifyBuffer)
	if err := sensor.InstallISR(edge, notifyISR, n); err != nil {
		return fmt.Errorf("install isr: %w", err)
	}
	tracker.SetISRInstalled(true)

	// Publish startup event with full status snapshot
	if pressed, value, err := sensor.State(); err == nil {
		tracker.SetLevel(pressed, value)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	log.Printf("started: sensor=%s line=%s:%d edge=%s broker=%s", sensor.Name(), cfg.Chip, sensor.Pin(), edge, cfg.Broker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sensor, publisher, publisher, tracker, n, time.Now, sigCh)
}

// notifier carries edge notifications from the ISR to runLoop.
type notifier struct {
	ch      chan time.Time
	dropped atomic.Int64
}

func newNotifier(size int) *notifier {
	return &notifier{ch: make(chan time.Time, size)}
}

// post queues a notification without blocking; the ISR context must never wait on runLoop.
func (n *notifier) post(t time.Time) {
	select {
	case n.ch <- t:
	default:
		n.dropped.Add(1)
	}
}

func (n *notifier) takeDropped() int {
	return int(n.dropped.Swap(0))
}

// notifyISR is installed on the sensor with a *notifier as its argument.
func notifyISR(arg any) {
	arg.(*notifier).post(time.Now())
}

func runLoop(sensor *button.Sensor, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, n *notifier, now func() time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Stop edge notifications before reporting the final state.
			if err := sensor.UninstallISR(); err != nil {
				log.Printf("uninstall isr: %v", err)
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				tracker.SetISRInstalled(sensor.ISRInstalled())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case at := <-n.ch:
			if d := n.takeDropped(); d > 0 {
				log.Printf("dropped %d edge notifications", d)
				if tracker != nil {
					tracker.AddDropped(d)
				}
			}

			pressed, value, err := sensor.State()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				if tracker != nil {
					tracker.RecordReadError()
				}
				continue
			}

			event := mqtt.Event{
				Timestamp: at,
				Sensor:    sensor.Name(),
				State:     mqtt.StateOf(pressed),
				Value:     value,
			}
			log.Printf("event: %s %s (value=%d)", event.Sensor, event.State, event.Value)
			if err := publisher.Publish(event); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.RecordEdge(at, pressed, value)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}
