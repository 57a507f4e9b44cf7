package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TelegramSender posts order summaries to the Telegram Bot API for a fixed
// set of admin chats. Failures are logged and swallowed; delivery is best
// effort.
type TelegramSender struct {
	Token      string
	AdminChats []string
	Client     *http.Client
	Log        *zap.Logger
}

func (t *TelegramSender) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (t *TelegramSender) SendNewOrder(ctx context.Context, p OrderCreatedPayload) {
	if t.Token == "" || len(t.AdminChats) == 0 {
		return
	}
	msg := BuildOrderMessage(p)
	for _, chat := range t.AdminChats {
		t.send(ctx, chat, msg)
	}
}

func (t *TelegramSender) send(ctx context.Context, chatID, text string) {
	form := url.Values{
		"chat_id":                  {chatID},
		"text":                     {text},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}
	endpoint := "https://api.telegram.org/bot" + t.Token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client().Do(req)
	if err != nil {
		if t.Log != nil {
			t.Log.Warn("telegram send failed", zap.String("chat_id", chatID), zap.Error(err))
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && t.Log != nil {
		t.Log.Warn("telegram api error", zap.String("chat_id", chatID), zap.Int("status", resp.StatusCode))
	}
}

// BuildOrderMessage renders the admin notification text for a new order.
func BuildOrderMessage(p OrderCreatedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛍 New order!\n")
	fmt.Fprintf(&b, "Number: <b>%s</b>\n", p.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\n", p.FullName)
	fmt.Fprintf(&b, "Phone: %s\n", p.ContactPhone)
	fmt.Fprintf(&b, "Payment: %s\n", p.PaymentMethod)
	fmt.Fprintf(&b, "Items: %d\n", p.TotalItems)
	fmt.Fprintf(&b, "Total: %s\n\n", FormatPrice(p.TotalCents))
	for i, l := range p.Lines {
		fmt.Fprintf(&b, "%d. %s — x%d | %s => %s\n",
			i+1, l.ProductName, l.Quantity, FormatPrice(l.UnitPriceCents), FormatPrice(l.TotalCents))
	}
	if p.DeliveryAddress != "" {
		fmt.Fprintf(&b, "\nAddress: %s\n", truncate(p.DeliveryAddress, 180))
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", truncate(p.Notes, 180))
	}
	return b.String()
}

// FormatPrice groups thousands with spaces: 1234500 -> "1 234 500".
func FormatPrice(cents int64) string {
	s := fmt.Sprintf("%d", cents)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
