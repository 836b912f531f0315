package notify

import (
	"fmt"
	"net/smtp"
	"os"

	"booking-engine/internal/logger"
	"booking-engine/internal/models"
)

// Notifier sends fire-and-forget emails after promotions and payouts.
// Delivery failures are logged and never surfaced to the triggering
// operation. When SMTP is not configured the notifier is a no-op.
type Notifier struct {
	log      *logger.Logger
	host     string
	port     string
	from     string
	password string
	enabled  bool
}

func NewNotifier(log *logger.Logger) *Notifier {
	n := &Notifier{
		log:      log,
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		from:     os.Getenv("SMTP_FROM"),
		password: os.Getenv("SMTP_PASSWORD"),
	}
	n.enabled = n.host != "" && n.from != "" && n.password != ""
	if !n.enabled {
		log.Warn("NOTIFY", "SMTP not configured, email notifications disabled")
	}
	return n
}

// SendPromotionEmail tells a wait-listed customer their booking is confirmed.
func (n *Notifier) SendPromotionEmail(toEmail, listingTitle string) {
	subject := "Your spot opened up!"
	body := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; max-width: 500px; margin: auto; padding: 20px;">
			<h2>🎉 You're booked!</h2>
			<p>A spot opened up for <strong>%s</strong> and your booking has been automatically confirmed.</p>
		</div>`, listingTitle)
	n.send(toEmail, subject, body)
}

// SendPayoutEmail tells a creator a payout is on the way.
func (n *Notifier) SendPayoutEmail(toEmail string, net float64, payoutType models.PayoutType) {
	subject := "Your payout is on the way"
	body := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; max-width: 500px; margin: auto; padding: 20px;">
			<h2>💸 Payout initiated</h2>
			<p>A %s payout of <strong>%.2f</strong> has been initiated to your connected account.</p>
		</div>`, payoutType, net)
	n.send(toEmail, subject, body)
}

func (n *Notifier) send(toEmail, subject, body string) {
	if !n.enabled || toEmail == "" {
		return
	}

	message := []byte(fmt.Sprintf(
		"Subject: %s\r\n"+
			"MIME-version: 1.0;\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s", subject, body))

	auth := smtp.PlainAuth("", n.from, n.password, n.host)

	if err := smtp.SendMail(n.host+":"+n.port, auth, n.from, []string{toEmail}, message); err != nil {
		n.log.Error("NOTIFY", fmt.Sprintf("Failed to send email to %s: %v", toEmail, err))
		return
	}

	n.log.Info("NOTIFY", fmt.Sprintf("Email sent to %s: %s", toEmail, subject))
}
