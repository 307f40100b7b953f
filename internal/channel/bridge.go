package channel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"vepbot/internal/logger"
)

// Bridge talks to a WhatsApp HTTP bridge that owns the paired session.
//
//	GET  /status         -> {"connected": bool}
//	POST /send/text      {"to", "body"}
//	POST /send/document  {"to", "caption", "filename", "mimetype", "data"(base64)}
type Bridge struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.SugaredLogger
}

func NewBridge(baseURL, token string, log *zap.SugaredLogger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// per-send deadlines come from ctx; this only caps a stuck connection
		client: &http.Client{Timeout: 2 * time.Minute},
		log:    log,
	}
}

type statusResp struct {
	Connected bool `json:"connected"`
}

type textReq struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type documentReq struct {
	To       string `json:"to"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Data     string `json:"data"`
}

// IsConnected never errors; an unreachable bridge counts as disconnected.
func (b *Bridge) IsConnected(ctx context.Context) bool {
	var st statusResp
	if err := b.do(ctx, http.MethodGet, "/status", nil, &st); err != nil {
		b.log.Debugw("bridge status failed", logger.FieldError, err)
		return false
	}
	return st.Connected
}

func (b *Bridge) SendText(ctx context.Context, address, body string) error {
	return b.do(ctx, http.MethodPost, "/send/text", textReq{To: address, Body: body}, nil)
}

func (b *Bridge) SendDocument(ctx context.Context, address, caption, filename string, data []byte) error {
	req := documentReq{
		To:       address,
		Caption:  caption,
		Filename: filename,
		Mimetype: "application/pdf",
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	return b.do(ctx, http.MethodPost, "/send/document", req, nil)
}

func (b *Bridge) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding bridge request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building bridge request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("%s %s: bridge returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}
