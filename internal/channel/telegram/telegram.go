// Package telegram implements the channel Adapter for the Telegram Bot API
// using long polling.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zulandar/heliograph/internal/channel"
)

const (
	// pollTimeout is the long-poll timeout passed to getUpdates.
	pollTimeout = 30 * time.Second
	// downloadTimeout bounds a single attachment download.
	downloadTimeout = 30 * time.Second
)

// botClient abstracts the tgbotapi methods we use, enabling test mocks.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// Adapter implements channel.Adapter for Telegram. Only messages from the
// configured operator are forwarded; everything else is dropped without a
// reply, so the bot's existence is never confirmed to strangers.
type Adapter struct {
	bot        botClient
	botToken   string
	operatorID int64
	downloads  string // directory for downloaded attachments

	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan channel.InboundMessage
	httpc     *http.Client
}

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	BotToken    string // Telegram bot token
	OperatorID  string // numeric user ID of the authorized operator
	DownloadDir string // where photo attachments are saved
	// For testing: inject a mock client instead of the real Bot API.
	Client botClient
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	operatorID, err := strconv.ParseInt(opts.OperatorID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: operator id %q is not numeric: %w", opts.OperatorID, err)
	}

	a := &Adapter{
		botToken:   opts.BotToken,
		operatorID: operatorID,
		downloads:  opts.DownloadDir,
		inbound:    make(chan channel.InboundMessage, 100),
		httpc:      &http.Client{Timeout: downloadTimeout},
	}
	if opts.Client != nil {
		a.bot = opts.Client
	}
	return a, nil
}

// Connect validates the token against the Bot API.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.bot == nil {
		bot, err := tgbotapi.NewBotAPI(a.botToken)
		if err != nil {
			return fmt.Errorf("telegram: authorize bot: %w", err)
		}
		log.Printf("telegram: connected as @%s", bot.Self.UserName)
		a.bot = bot
	}

	a.connected = true
	return nil
}

// Listen starts long polling and returns the inbound message channel.
// Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan channel.InboundMessage, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("telegram: not connected")
	}
	bot := a.bot
	a.mu.Unlock()

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(pollTimeout.Seconds())
	updates := bot.GetUpdatesChan(cfg)

	go a.pump(ctx, updates)

	return a.inbound, nil
}

// pump converts Telegram updates to InboundMessages until the update
// channel closes or the context is cancelled.
func (a *Adapter) pump(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			a.handleMessage(update.Message)
		}
	}
}

// handleMessage filters by sender and forwards a converted message.
func (a *Adapter) handleMessage(m *tgbotapi.Message) {
	if m.From.ID != a.operatorID {
		log.Printf("telegram: ignored message from unauthorized sender %d", m.From.ID)
		return
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}

	msg := channel.InboundMessage{
		Platform:   "telegram",
		MessageID:  strconv.Itoa(m.MessageID),
		SenderID:   strconv.FormatInt(m.From.ID, 10),
		SenderName: senderName(m.From),
		Text:       text,
		ReceivedAt: m.Time(),
	}

	if len(m.Photo) > 0 {
		// Largest rendition is last.
		fileID := m.Photo[len(m.Photo)-1].FileID
		if path, err := a.downloadPhoto(fileID); err == nil {
			msg.Attachment = path
		} else {
			log.Printf("telegram: download photo: %v", err)
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
		log.Printf("telegram: inbound buffer full, dropping message %s", msg.MessageID)
	}
}

// downloadPhoto fetches a photo by file ID into the download directory.
func (a *Adapter) downloadPhoto(fileID string) (string, error) {
	url, err := a.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

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
	path := filepath.Join(a.downloads, fmt.Sprintf("tg-%d.jpg", time.Now().UnixNano()))
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

// Send delivers a message (or photo) to the operator. HTML formatting is
// retried as plain text when Telegram rejects the markup.
func (a *Adapter) Send(ctx context.Context, msg channel.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("telegram: not connected")
	}
	bot := a.bot
	a.mu.Unlock()

	if msg.ImagePath != "" {
		photo := tgbotapi.NewPhoto(a.operatorID, tgbotapi.FilePath(msg.ImagePath))
		photo.Caption = msg.Text
		if _, err := bot.Send(photo); err != nil {
			return fmt.Errorf("telegram: send photo: %w", err)
		}
		return nil
	}

	out := tgbotapi.NewMessage(a.operatorID, msg.Text)
	if msg.HTML {
		out.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := bot.Send(out); err != nil {
		if !msg.HTML {
			return fmt.Errorf("telegram: send message: %w", err)
		}
		// Bad markup in the payload is more likely than a transport
		// failure; retry once without a parse mode.
		out.ParseMode = ""
		if _, retryErr := bot.Send(out); retryErr != nil {
			return fmt.Errorf("telegram: send message: %w", retryErr)
		}
	}
	return nil
}

// Close stops long polling and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.bot != nil {
		a.bot.StopReceivingUpdates()
	}
	close(a.inbound)
	return nil
}

// senderName picks the best human-readable name for a Telegram user.
func senderName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.UserName != "" {
		return u.UserName
	}
	return "operator"
}
