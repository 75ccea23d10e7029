// Package discord implements the channel Adapter for Discord using the
// Gateway WebSocket.
package discord

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/heliograph/internal/channel"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
	// downloadTimeout bounds a single attachment download.
	downloadTimeout = 30 * time.Second
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}
func (r *realSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return r.s.UserChannelCreate(recipientID, options...)
}

// Adapter implements channel.Adapter for Discord. Messages are exchanged
// with a single operator, either in a configured channel or over DM.
type Adapter struct {
	sess       session
	botToken   string
	channelID  string // optional fixed channel; DM with the operator otherwise
	operatorID string
	downloads  string

	mu            sync.Mutex
	connected     bool
	closed        bool
	dmChannelID   string // resolved DM channel, cached
	inbound       chan channel.InboundMessage
	removeHandler func()
	httpc         *http.Client
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken    string // Discord bot token
	ChannelID   string // optional channel to relay through; DM when empty
	OperatorID  string // Discord user ID of the authorized operator
	DownloadDir string // where attachments are saved
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.OperatorID == "" {
		return nil, fmt.Errorf("discord: operator id is required")
	}

	a := &Adapter{
		botToken:   opts.BotToken,
		channelID:  opts.ChannelID,
		operatorID: opts.OperatorID,
		downloads:  opts.DownloadDir,
		inbound:    make(chan channel.InboundMessage, 100),
		httpc:      &http.Client{Timeout: downloadTimeout},
	}
	if opts.Session != nil {
		a.sess = opts.Session
	}
	return a, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Printf("discord: connected as %s", r.User.Username)
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.connected = true
	return nil
}

// Listen registers the message handler and returns the inbound channel.
// Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan channel.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}

	a.removeHandler = a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(m)
	})
	return a.inbound, nil
}

// handleMessage filters by sender and forwards a converted message.
func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.Author.ID != a.operatorID {
		log.Printf("discord: ignored message from unauthorized sender %s", m.Author.ID)
		return
	}

	msg := channel.InboundMessage{
		Platform:   "discord",
		MessageID:  m.ID,
		SenderID:   m.Author.ID,
		SenderName: m.Author.Username,
		Text:       m.Content,
		ReceivedAt: m.Timestamp,
	}

	if len(m.Attachments) > 0 {
		att := m.Attachments[0]
		if path, err := a.downloadAttachment(att.URL, att.Filename); err == nil {
			msg.Attachment = path
		} else {
			log.Printf("discord: download attachment: %v", err)
		}
	}

	a.deliver(msg)
}

// deliver hands a message to the Listen channel. The closed check and the
// send share the mutex with Close, so a message arriving during shutdown is
// dropped instead of hitting a closed channel.
func (a *Adapter) deliver(msg channel.InboundMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- msg:
	default:
		log.Printf("discord: inbound buffer full, dropping message %s", msg.MessageID)
	}
}

// downloadAttachment fetches an attachment URL into the download directory.
func (a *Adapter) downloadAttachment(url, name string) (string, error) {
	resp, err := a.httpc.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: status %s", resp.Status)
	}

	if err := os.MkdirAll(a.downloads, 0o755); err != nil {
		return "", fmt.Errorf("download dir: %w", err)
	}
	path := filepath.Join(a.downloads, fmt.Sprintf("dc-%d-%s", time.Now().UnixNano(), filepath.Base(name)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write: %w", err)
	}
	return path, nil
}

// Send delivers a message (or file) to the operator.
func (a *Adapter) Send(ctx context.Context, msg channel.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	target, err := a.targetChannel()
	if err != nil {
		return err
	}

	text := msg.Text
	if msg.HTML {
		text = channel.MarkdownText(text)
	}

	if msg.ImagePath != "" {
		f, err := os.Open(msg.ImagePath)
		if err != nil {
			return fmt.Errorf("discord: open image: %w", err)
		}
		defer f.Close()

		data := &discordgo.MessageSend{
			Content: text,
			Files:   []*discordgo.File{{Name: filepath.Base(msg.ImagePath), Reader: f}},
		}
		err = a.retryOnRateLimit(ctx, func() error {
			_, sendErr := a.sess.ChannelMessageSendComplex(target, data)
			return sendErr
		})
		if err != nil {
			return fmt.Errorf("discord: send image: %w", err)
		}
		return nil
	}

	err = a.retryOnRateLimit(ctx, func() error {
		_, sendErr := a.sess.ChannelMessageSend(target, text)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// targetChannel resolves the channel to post to: the configured channel, or
// a (cached) DM channel with the operator.
func (a *Adapter) targetChannel() (string, error) {
	if a.channelID != "" {
		return a.channelID, nil
	}

	a.mu.Lock()
	cached := a.dmChannelID
	a.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	ch, err := a.sess.UserChannelCreate(a.operatorID)
	if err != nil {
		return "", fmt.Errorf("discord: open dm channel: %w", err)
	}
	a.mu.Lock()
	a.dmChannelID = ch.ID
	a.mu.Unlock()
	return ch.ID, nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.removeHandler != nil {
		a.removeHandler()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * baseBackoff
		if wait > maxBackoff {
			wait = maxBackoff
		}
		log.Printf("discord: rate limited (attempt %d/%d) — retrying in %v", attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
