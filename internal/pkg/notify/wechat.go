package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WeChatSender posts markdown messages to a work-group webhook.
type WeChatSender struct {
	webhookURL string
	httpClient *http.Client
}

func NewWeChatSender(webhookURL string) *WeChatSender {
	return &WeChatSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type wechatMessage struct {
	MsgType  string         `json:"msgtype"`
	Markdown *wechatContent `json:"markdown,omitempty"`
	Text     *wechatContent `json:"text,omitempty"`
}

type wechatContent struct {
	Content string `json:"content"`
}

type wechatResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// SendMarkdown posts one markdown message. The webhook reports errors
// in the body, so success requires errcode 0, not just HTTP 200.
func (s *WeChatSender) SendMarkdown(ctx context.Context, content string) error {
	return s.send(ctx, wechatMessage{MsgType: "markdown", Markdown: &wechatContent{Content: content}})
}

// SendText posts one plain-text message.
func (s *WeChatSender) SendText(ctx context.Context, content string) error {
	return s.send(ctx, wechatMessage{MsgType: "text", Text: &wechatContent{Content: content}})
}

func (s *WeChatSender) send(ctx context.Context, msg wechatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal wechat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create wechat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wechat webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read wechat response: %w", err)
	}
	var parsed wechatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode wechat response: %w", err)
	}
	if parsed.ErrCode != 0 {
		return fmt.Errorf("wechat webhook rejected message: errcode=%d errmsg=%q", parsed.ErrCode, parsed.ErrMsg)
	}
	return nil
}
