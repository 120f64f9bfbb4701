package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

// ErrNotOnWhatsApp is returned when the recipient has no WhatsApp account.
var ErrNotOnWhatsApp = errors.New("whatsapp: number is not registered")

// ReplyHandler receives inbound text messages. phone holds international
// digits without a plus.
type ReplyHandler func(ctx context.Context, phone, text string)

// waClient is the subset of *whatsmeow.Client used for delivery.
type waClient interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// MultiDeviceConfig configures the linked-device WhatsApp channel.
type MultiDeviceConfig struct {
	// StorePath is the sqlite file holding the linked device session.
	StorePath          string
	DefaultCountryCode string
	// QRWriter receives the pairing QR code when no session exists yet.
	QRWriter io.Writer
}

// MultiDeviceChannel sends messages as a linked WhatsApp device and
// forwards inbound replies to a ReplyHandler.
type MultiDeviceChannel struct {
	cfg    MultiDeviceConfig
	client *whatsmeow.Client
	sender waClient
	log    zerolog.Logger

	mu      sync.RWMutex
	onReply ReplyHandler
}

// OpenMultiDevice opens (or creates) the device store. Call Connect before
// sending.
func OpenMultiDevice(ctx context.Context, cfg MultiDeviceConfig, log zerolog.Logger) (*MultiDeviceChannel, error) {
	if strings.TrimSpace(cfg.StorePath) == "" {
		return nil, errors.New("whatsapp: store path is required")
	}
	if cfg.QRWriter == nil {
		cfg.QRWriter = io.Discard
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", cfg.StorePath)
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLog.Zerolog(log.With().Str("component", "whatsmeow-store").Logger()))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open device store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Zerolog(log.With().Str("component", "whatsmeow").Logger()))
	ch := newMultiDeviceChannel(client, cfg, log)
	ch.client = client
	client.AddEventHandler(ch.handleEvent)
	return ch, nil
}

func newMultiDeviceChannel(sender waClient, cfg MultiDeviceConfig, log zerolog.Logger) *MultiDeviceChannel {
	return &MultiDeviceChannel{cfg: cfg, sender: sender, log: log}
}

func (c *MultiDeviceChannel) Name() string { return "whatsapp" }

// Connect connects the client. Without a stored session it prints pairing
// QR codes to the configured writer until the device is linked or ctx ends.
func (c *MultiDeviceChannel) Connect(ctx context.Context) error {
	if c.client == nil {
		return errors.New("whatsapp: client not opened")
	}
	if c.client.Store.ID != nil {
		return c.client.Connect()
	}

	qrChan, err := c.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp: qr channel: %w", err)
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			c.writeQR(evt.Code)
		case "success":
			c.log.Info().Msg("whatsapp device linked")
			return nil
		default:
			c.log.Info().Str("event", evt.Event).Msg("whatsapp pairing event")
		}
	}
	if c.client.Store.ID == nil {
		return errors.New("whatsapp: pairing did not complete")
	}
	return nil
}

func (c *MultiDeviceChannel) writeQR(code string) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(c.cfg.QRWriter, "Pairing code: %s\n", code)
		return
	}
	fmt.Fprintln(c.cfg.QRWriter, q.ToSmallString(false))
	fmt.Fprintln(c.cfg.QRWriter, "Scan with WhatsApp > Linked devices > Link a device")
}

// Connected reports whether the linked device is online and logged in.
func (c *MultiDeviceChannel) Connected() bool {
	return c.client != nil && c.client.IsConnected() && c.client.IsLoggedIn()
}

// Close disconnects the client.
func (c *MultiDeviceChannel) Close() {
	if c.client != nil {
		c.client.Disconnect()
	}
}

// OnReply registers the handler for inbound text messages.
func (c *MultiDeviceChannel) OnReply(handler ReplyHandler) {
	c.mu.Lock()
	c.onReply = handler
	c.mu.Unlock()
}

func (c *MultiDeviceChannel) Send(ctx context.Context, guest *models.Guest, message string) error {
	phone := NormalizePhone(guest.PhoneNumber, c.cfg.DefaultCountryCode)
	if phone == "" {
		return ErrNoAddress
	}

	resp, err := c.sender.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("whatsapp: lookup %s: %w", phone, err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("%w: %s", ErrNotOnWhatsApp, phone)
	}

	sent, err := c.sender.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &message})
	if err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", phone, err)
	}
	c.log.Debug().Str("jid", resp[0].JID.String()).Str("message_id", sent.ID).Msg("whatsapp message sent")
	return nil
}

func (c *MultiDeviceChannel) handleEvent(evt any) {
	switch e := evt.(type) {
	case *events.Message:
		c.handleMessage(e)
	case *events.Connected:
		c.log.Info().Msg("whatsapp connected")
	case *events.Disconnected:
		c.log.Warn().Msg("whatsapp disconnected")
	case *events.LoggedOut:
		c.log.Warn().Msg("whatsapp logged out")
	}
}

func (c *MultiDeviceChannel) handleMessage(msg *events.Message) {
	if msg == nil || msg.Info.IsFromMe || msg.Message == nil {
		return
	}
	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	c.mu.RLock()
	handler := c.onReply
	c.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(context.Background(), msg.Info.Sender.User, text)
}
