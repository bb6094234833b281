// Package alert emails when a price first drops below its threshold.
package alert

import (
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"

	"pricewatch/internal/scrape"
)

// Sender delivers one alert message.
type Sender interface {
	Send(subject, htmlBody string) error
}

// SMTP sends alerts through an SMTP server with PLAIN auth. Gmail app
// passwords work with host smtp.gmail.com, port 587.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

func (s *SMTP) Send(subject, htmlBody string) error {
	e := email.NewEmail()
	e.From = s.From
	e.To = s.To
	e.Subject = subject
	e.HTML = []byte(htmlBody)
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	return e.Send(addr, smtp.PlainAuth("", s.Username, s.Password, s.Host))
}

// Notifier watches successful readings and alerts at most once per metal per
// process lifetime. A failed send is retried on the next successful cycle.
// Called only from the watcher goroutine; not safe for concurrent use.
type Notifier struct {
	sender      Sender
	log         *slog.Logger
	goldBelow   decimal.Decimal // zero disables
	silverBelow decimal.Decimal // zero disables
	sentGold    bool
	sentSilver  bool
}

func NewNotifier(sender Sender, goldBelow, silverBelow decimal.Decimal, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sender: sender, goldBelow: goldBelow, silverBelow: silverBelow, log: log}
}

// Observe evaluates one successful reading against the thresholds.
func (n *Notifier) Observe(r scrape.Reading) {
	if !n.sentGold && n.goldBelow.IsPositive() && r.Gold.Amount.LessThan(n.goldBelow) {
		n.sentGold = n.notify("Gold", r.Gold, n.goldBelow)
	}
	if !n.sentSilver && n.silverBelow.IsPositive() && r.Silver.Amount.LessThan(n.silverBelow) {
		n.sentSilver = n.notify("Silver", r.Silver, n.silverBelow)
	}
}

func (n *Notifier) notify(metal string, q scrape.Quote, below decimal.Decimal) bool {
	body := fmt.Sprintf(
		"<html><body><h2>%s Price Update</h2><p>Current %s price: <strong>%s</strong></p></body></html>",
		metal, metal, q.Display,
	)
	if err := n.sender.Send(metal+" Price Dropped!!", body); err != nil {
		n.log.Error("send price alert", "metal", metal, "err", err)
		return false
	}
	n.log.Info("price alert sent", "metal", metal, "price", q.Display, "below", below.String())
	return true
}
