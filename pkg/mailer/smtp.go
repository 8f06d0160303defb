package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

// SMTPSender delivers order notifications through a plain SMTP relay.
type SMTPSender struct {
	cfg  config.SMTPConfig
	logg *logger.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender validates the relay configuration and returns a sender.
func NewSMTPSender(cfg config.SMTPConfig, logg *logger.Logger) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp host, from and admin email are required")
	}
	if logg == nil {
		return nil, errors.New("smtp logger is required")
	}
	return &SMTPSender{cfg: cfg, logg: logg, send: smtp.SendMail}, nil
}

// SendOrderPlaced notifies the shop admin about a new order.
func (s *SMTPSender) SendOrderPlaced(ctx context.Context, n OrderNotification) error {
	subject := fmt.Sprintf("New order %s", n.OrderID)

	var body strings.Builder
	fmt.Fprintf(&body, "Order %s placed by %s <%s>\r\n", n.OrderID, n.CustomerName, n.CustomerEmail)
	fmt.Fprintf(&body, "Payment method: %s\r\n", n.PaymentMethod)
	fmt.Fprintf(&body, "Total: %s EGP\r\n\r\n", n.TotalAmount.StringFixed(2))
	for _, line := range n.Lines {
		fmt.Fprintf(&body, "- %s (%s/%s) x%d @ %s\r\n",
			line.ProductName, line.Size, line.Color, line.Quantity, line.UnitPrice.StringFixed(2))
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.cfg.From, s.cfg.AdminEmail, subject, body.String())

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{s.cfg.AdminEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("sending order email: %w", err)
	}

	s.logg.Info(s.logg.WithOrderID(ctx, n.OrderID), "order notification sent")
	return nil
}
