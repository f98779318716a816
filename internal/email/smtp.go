package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Signer   *DKIMSigner
}

const smtpDialTimeout = 30 * time.Second

// SMTPTransport relays messages through a submission server. STARTTLS is
// used when the server offers it; plaintext relays are accepted otherwise.
type SMTPTransport struct {
	host     string
	addr     string
	username string
	password string
	signer   *DKIMSigner
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPTransport{
		host:     cfg.Host,
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		username: cfg.Username,
		password: cfg.Password,
		signer:   cfg.Signer,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	from, err := envelopeAddress(msg.From)
	if err != nil {
		return "", fmt.Errorf("invalid sender: %w", err)
	}
	to := make([]string, 0, len(msg.To))
	for _, r := range msg.To {
		addr, err := envelopeAddress(r)
		if err != nil {
			return "", fmt.Errorf("invalid recipient %q: %w", r, err)
		}
		to = append(to, addr)
	}

	messageID := fmt.Sprintf("%s@%s", uuid.New().String(), domainOf(from))
	data := buildMessage(msg, messageID, time.Now())

	if t.signer != nil {
		signed, err := t.signer.Sign(data)
		if err != nil {
			return "", err
		}
		data = signed
	}

	if err := t.deliver(ctx, from, to, data); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return messageID, nil
}

func (t *SMTPTransport) deliver(ctx context.Context, from string, to []string, data []byte) error {
	c, err := t.open(ctx, domainOf(from))
	if err != nil {
		return err
	}
	defer c.Close()

	if t.username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("server at %s does not support AUTH", t.addr)
		}
		if err := c.Auth(sasl.NewPlainClient("", t.username, t.password)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return c.Quit()
}

// open greets the server and upgrades to TLS when STARTTLS is advertised.
// The client cannot upgrade an already greeted session, so a server that
// offers STARTTLS is reconnected with the upgrade done up front.
func (t *SMTPTransport) open(ctx context.Context, name string) (*smtp.Client, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	c := smtp.NewClient(conn)
	if err := c.Hello(name); err != nil {
		c.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return c, nil
	}
	c.Quit()
	c.Close()

	conn, err = t.dial(ctx)
	if err != nil {
		return nil, err
	}
	tlsConfig := &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}
	c, err = smtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("starttls: %w", err)
	}
	if err := c.Hello(name); err != nil {
		c.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	return c, nil
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	return conn, nil
}

func envelopeAddress(s string) (string, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}

// buildMessage renders an RFC 5322 message, multipart/alternative when both
// a text and an HTML body are present.
func buildMessage(msg Message, messageID string, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s>\r\n", messageID)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	for k, v := range msg.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case msg.HTML != "" && msg.Text != "":
		boundary := uuid.New().String()
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)
		fmt.Fprintf(&buf, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.Text)
		fmt.Fprintf(&buf, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTML)
		fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	case msg.HTML != "":
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.HTML)
	default:
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.Text)
	}

	return buf.Bytes()
}
