// Package webhook delivers post mutation notifications to each owner's
// configured target URL. Dispatch is queued and processed by worker
// goroutines so a slow or dead receiver never blocks the mutation that
// triggered it. Every attempt is appended to a bounded per-user
// delivery log, newest first.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/user"
)

var hookLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	hookLogger = l
}

const (
	payloadSource    = "pulsiveblog"
	responseLogLimit = 100
)

type job struct {
	owner  model.UserID
	action string
	data   map[string]any
}

type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	LogLimit  int
}

func DefaultConfig() Config {
	return Config{Workers: 3, QueueSize: 100, Timeout: 10 * time.Second, LogLimit: 5}
}

// Notifier implements the repository's notification hook.
type Notifier struct {
	users  *user.Store
	client *http.Client

	queue    chan job
	workers  int
	logLimit int

	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

func NewNotifier(users *user.Store, cfg Config) *Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = 5
	}

	return &Notifier{
		users:    users,
		client:   &http.Client{Timeout: cfg.Timeout},
		queue:    make(chan job, cfg.QueueSize),
		workers:  cfg.Workers,
		logLimit: cfg.LogLimit,
		done:     make(chan struct{}),
	}
}

// Start launches the delivery workers.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return
	}
	n.running = true
	n.mu.Unlock()

	hookLogger.Info().Int("workers", n.workers).Msg("Starting webhook notifier")
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(ctx)
	}
}

// Stop signals the workers, delivers whatever is still queued and waits
// for in-flight deliveries to finish.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
	hookLogger.Info().Msg("Webhook notifier stopped")
}

// Notify enqueues a delivery. It never blocks: when the queue is full
// the event is dropped and logged.
func (n *Notifier) Notify(owner model.UserID, action string, data map[string]any) {
	select {
	case n.queue <- job{owner: owner, action: action, data: data}:
	default:
		hookLogger.Warn().Str("action", action).Str("owner", string(owner)).Msg("Webhook queue full, event dropped")
	}
}

func (n *Notifier) worker(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			n.drain(ctx)
			return
		case <-ctx.Done():
			return
		case j := <-n.queue:
			n.deliver(ctx, j)
		}
	}
}

// drain empties the queue at shutdown so events accepted before Stop
// are still delivered.
func (n *Notifier) drain(ctx context.Context) {
	for {
		select {
		case j := <-n.queue:
			n.deliver(ctx, j)
		default:
			return
		}
	}
}

// deliver performs one webhook POST. Owners with no configured target
// trigger no network call at all.
func (n *Notifier) deliver(ctx context.Context, j job) {
	u, err := n.users.GetByID(j.owner)
	if err != nil {
		hookLogger.Warn().Err(err).Str("owner", string(j.owner)).Msg("Webhook owner lookup failed")
		return
	}
	if u.WebhookURL == "" {
		return
	}

	payload := map[string]any{
		"source":    payloadSource,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"action":    j.action,
	}
	for k, v := range j.data {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		hookLogger.Error().Err(err).Msg("Webhook payload marshal failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.WebhookURL, bytes.NewReader(body))
	if err != nil {
		hookLogger.Error().Err(err).Str("url", u.WebhookURL).Msg("Webhook request build failed")
		return
	}
	req.Header.Set(config.HCType, config.CTypeJSON)
	req.Header.Set(config.HEvent, j.action)
	req.Header.Set(config.HWebUA, config.WebhookUA)

	entry := model.WebhookLog{Event: j.action, Timestamp: time.Now().UTC()}

	resp, err := n.client.Do(req)
	if err != nil {
		hookLogger.Warn().Err(err).Str("username", u.Username).Msg("Webhook delivery failed")
		entry.Status = 0
		entry.Response = truncate(err.Error(), responseLogLimit)
	} else {
		defer resp.Body.Close()
		entry.Status = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			entry.Response = "Success"
			hookLogger.Debug().Str("username", u.Username).Str("action", j.action).Msg("Webhook delivered")
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			entry.Response = truncate(string(respBody), responseLogLimit)
			hookLogger.Warn().Int("status", resp.StatusCode).Str("url", u.WebhookURL).Msg("Webhook returned non-2xx")
		}
	}

	if err := n.users.AppendWebhookLog(u.ID, entry, n.logLimit); err != nil {
		hookLogger.Error().Err(err).Str("username", u.Username).Msg("Webhook log append failed")
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
