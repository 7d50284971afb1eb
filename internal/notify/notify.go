// Package notify delivers finished bills to customers over WhatsApp and
// email. Delivery is best-effort: a failed send is reported back as a warning
// and must never roll back the bill it belongs to.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// BillSummary is the channel-independent payload for one finished bill
type BillSummary struct {
	BillNumber    string `json:"bill_number"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	GrandTotal    string `json:"grand_total"`
	ShareURL      string `json:"share_url"`
}

// Sender is one delivery channel
type Sender interface {
	Name() string
	Send(ctx context.Context, bill BillSummary) error
}

// Dispatcher fans a bill out to every configured channel and collects
// per-channel failures instead of aborting on the first one.
type Dispatcher struct {
	senders []Sender
}

func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders}
}

// Dispatch returns one warning string per failed channel. An empty slice
// means every applicable channel succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, bill BillSummary) []string {
	var warnings []string
	for _, s := range d.senders {
		if err := s.Send(ctx, bill); err != nil {
			log.Printf("notify: %s delivery failed for bill %s: %v", s.Name(), bill.BillNumber, err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	return warnings
}

// --- WhatsApp ---

// WhatsAppSender posts the bill to a configured gateway API. Without a
// gateway URL it only logs the attempt, mirroring the reference system's
// placeholder behavior.
type WhatsAppSender struct {
	APIURL string
	Client *http.Client
}

func NewWhatsAppSender(apiURL string) *WhatsAppSender {
	return &WhatsAppSender{
		APIURL: apiURL,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WhatsAppSender) Name() string { return "whatsapp" }

func (s *WhatsAppSender) Send(ctx context.Context, bill BillSummary) error {
	if bill.CustomerPhone == "" {
		return nil // nothing to send to
	}

	if s.APIURL == "" {
		log.Printf("notify: WhatsApp bill %s to %s (no gateway configured, logged only)", bill.BillNumber, bill.CustomerPhone)
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"phone":   bill.CustomerPhone,
		"message": fmt.Sprintf("Thank you %s! Your bill %s for %s is ready: %s", bill.CustomerName, bill.BillNumber, bill.GrandTotal, bill.ShareURL),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// --- Email ---

// EmailSender sends a plain-text bill notification via SMTP, or logs when no
// SMTP host is configured.
type EmailSender struct {
	Host     string
	Port     string
	From     string
	Password string
}

func NewEmailSender(host, port, from, password string) *EmailSender {
	return &EmailSender{Host: host, Port: port, From: from, Password: password}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, bill BillSummary) error {
	if bill.CustomerEmail == "" {
		return nil
	}

	if s.Host == "" {
		log.Printf("notify: email bill %s to %s (no SMTP configured, logged only)", bill.BillNumber, bill.CustomerEmail)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + bill.CustomerEmail,
		"Subject: Your Bill " + bill.BillNumber,
		"",
		fmt.Sprintf("Thank you for your purchase, %s!", bill.CustomerName),
		fmt.Sprintf("Bill %s total: %s", bill.BillNumber, bill.GrandTotal),
		"View your bill: " + bill.ShareURL,
	}, "\r\n")

	var auth smtp.Auth
	if s.Password != "" {
		auth = smtp.PlainAuth("", s.From, s.Password, s.Host)
	}

	return smtp.SendMail(s.Host+":"+s.Port, auth, s.From, []string{bill.CustomerEmail}, []byte(msg))
}
