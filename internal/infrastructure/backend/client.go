package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

const secretHeader = "X-Bot-Secret"

// Client talks to the order-management service.
type Client struct {
	baseURL        string
	secret         string
	http           *http.Client
	confirmTimeout time.Duration
}

func NewClient(baseURL, secret string, timeout, confirmTimeout time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		secret:         secret,
		http:           &http.Client{Timeout: timeout},
		confirmTimeout: confirmTimeout,
	}
}

// SubmitOrder posts one multipart submission. Only 201 counts as accepted.
func (c *Client) SubmitOrder(ctx context.Context, s entity.Submission) (*entity.OrderReceipt, error) {
	body, contentType, err := encodeSubmission(s)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/correction-orders/", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post correction order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp.StatusCode, raw)
	}
	var receipt entity.OrderReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("decode order receipt: %w", err)
	}
	return &receipt, nil
}

// ConfirmOrder marks an order done on the user's behalf.
func (c *Client) ConfirmOrder(ctx context.Context, orderID int64) (*entity.ConfirmReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	url := c.baseURL + "/correction-orders/" + strconv.FormatInt(orderID, 10) + "/user-confirm"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("confirm order %d: %w", orderID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, raw)
	}
	var receipt entity.ConfirmReceipt
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &receipt); err != nil {
			return nil, fmt.Errorf("decode confirm receipt: %w", err)
		}
	}
	return &receipt, nil
}

func statusError(code int, raw []byte) *application.StatusError {
	se := &application.StatusError{StatusCode: code, Body: string(raw)}
	var body struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != nil {
		switch d := body.Detail.(type) {
		case string:
			se.Detail = d
		default:
			b, _ := json.Marshal(d)
			se.Detail = string(b)
		}
	}
	return se
}

// encodeSubmission builds the multipart body. Optional fields are omitted when empty.
func encodeSubmission(s entity.Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name, value string
		keep        bool
	}{
		{"telegram_user_id", strconv.FormatInt(s.UserID, 10), true},
		{"telegram_chat_id", strconv.FormatInt(s.ChatID, 10), true},
		{"telegram_username", s.Username, s.Username != ""},
		{"telegram_full_name", s.FullName, s.FullName != ""},
		{"description", s.Description, s.Description != ""},
		{"replace_order_id", replaceValue(s.ReplaceOrderID), s.ReplaceOrderID != nil},
		{"user_message_id", strconv.Itoa(s.UserMessageID), s.UserMessageID != 0},
	}
	for _, f := range fields {
		if !f.keep {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	for _, p := range s.Photos {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename=%q`, p.Filename))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(p.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func replaceValue(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

var _ application.OrderBackend = (*Client)(nil)
