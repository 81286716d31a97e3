package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/trace"
	"github.com/noghresod/shopsync/xerrors"
)

// maxBodyBytes 响应体上限
const maxBodyBytes = 8 << 20

// envelope 服务端统一响应格式
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type response struct {
	status int
	body   []byte
	cached bool // 304 命中本地 ETag 缓存
}

// call 一次 API 调用，route 是低基数的路由模板，用于指标和 Span
type call struct {
	method string
	route  string
	path   string
	body   any
}

// do 执行调用并把信封中的 data 解码到 out
func (c *client) do(ctx context.Context, cl call, out any) error {
	ctx, span := c.tracer.Start(ctx, "remote "+cl.method+" "+cl.route,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.method", cl.method),
			attribute.String("http.route", cl.route),
		))
	defer span.End()

	err := c.execute(ctx, cl, span, out)
	trace.MarkSpanError(span, err)
	return err
}

func (c *client) execute(ctx context.Context, cl call, span oteltrace.Span, out any) error {
	host := c.base.Host
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, host, c.cfg.RateLimit); err != nil {
			return xerrors.Wrapf(err, "remote: %s %s", cl.method, cl.path)
		}
	}

	start := time.Now()
	res, err := c.guard(host).Execute(func() (*response, error) {
		return c.roundTrip(ctx, cl)
	})

	status := 0
	if res != nil {
		status = res.status
	} else {
		var se *StatusError
		if xerrors.As(err, &se) {
			status = se.Status
		}
	}
	c.metrics.Observe(ctx, cl.method, cl.route, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", status))

	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.DebugContext(ctx, "request rejected by guard", clog.String("host", host), clog.String("route", cl.route))
		return xerrors.WithCode(xerrors.Wrapf(ErrGuardOpen, "%s %s", cl.method, cl.path), xerrors.CodeUnavailable)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "remote request failed",
			clog.String("method", cl.method),
			clog.String("route", cl.route),
			clog.Int("status", status),
			clog.Error(err))
		return err
	}

	c.logger.DebugContext(ctx, "remote request",
		clog.String("method", cl.method),
		clog.String("route", cl.route),
		clog.Int("status", res.status),
		clog.Bool("not_modified", res.cached),
		clog.Duration("duration", time.Since(start)))
	return c.decode(cl, res.body, out)
}

// roundTrip 发送请求并读取响应，GET 请求带 If-None-Match
func (c *client) roundTrip(ctx context.Context, cl call) (*response, error) {
	ref, err := url.Parse(cl.path)
	if err != nil {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "remote: path %q: %v", cl.path, err)
	}
	target := c.base.ResolveReference(ref).String()

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "remote: encode request: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "remote: build request: %v", err)
	}
	c.setHeaders(req, cl.body != nil)
	trace.InjectHTTP(ctx, req.Header)

	conditional := cl.method == http.MethodGet
	var cached etagEntry
	if conditional {
		if entry, ok := c.etags.Get(target); ok {
			cached = entry
			req.Header.Set("If-None-Match", entry.etag)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, xerrors.WithCode(xerrors.Wrapf(err, "remote: %s %s", cl.method, cl.path), xerrors.CodeRemote)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, xerrors.WithCode(xerrors.Wrapf(err, "remote: read %s", cl.path), xerrors.CodeRemote)
	}

	if resp.StatusCode == http.StatusNotModified && cached.etag != "" {
		return &response{status: resp.StatusCode, body: cached.body, cached: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(cl, resp.StatusCode, data)
	}

	if conditional {
		if etag := resp.Header.Get("ETag"); etag != "" {
			c.etags.Add(target, etagEntry{etag: etag, body: data})
		}
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

// statusError 优先使用信封中的 message
func (c *client) statusError(cl call, status int, body []byte) error {
	var env envelope
	_ = json.Unmarshal(body, &env)
	return &StatusError{Method: cl.method, Path: cl.path, Status: status, Message: env.Message}
}

func (c *client) decode(cl call, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return xerrors.Wrapf(ErrDecode, "%s %s: %v", cl.method, cl.path, err)
	}
	if !env.Success {
		return &StatusError{Method: cl.method, Path: cl.path, Status: http.StatusUnprocessableEntity, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return xerrors.Wrapf(ErrDecode, "%s %s data: %v", cl.method, cl.path, err)
	}
	return nil
}
