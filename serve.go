package main

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
)

// cloudflareChallengePage is a trimmed interstitial as served by Cloudflare.
const cloudflareChallengePage = `<!DOCTYPE html>
<html lang="en-US">
<head><title>Just a moment...</title></head>
<body>
<div id="cf-wrapper">
  <form class="challenge-form" id="challenge-form" action="/?__cf_chl_f_tk=fixture" method="POST">
    <input type="hidden" name="md" value="fixture"/>
  </form>
  <span>Performance &amp; security by Cloudflare</span>
</div>
</body>
</html>`

// EchoedRequest is the JSON document returned by /headers.
type EchoedRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}

// FixtureServer is a local target for exercising the fetcher:
//
//	/headers        echo the request as JSON
//	/redirect/{n}   302 chain of n hops ending at /headers
//	/challenge      503 Cloudflare challenge page
//	/status/{code}  empty response with that status
type FixtureServer struct {
	server *fasthttp.Server
	logger Logger
}

func NewFixtureServer(logger Logger) *FixtureServer {
	if logger == nil {
		logger = noopLogger{}
	}
	fs := &FixtureServer{logger: logger}
	fs.server = &fasthttp.Server{
		Name:    "cloakfetch-fixture",
		Handler: fs.handle,
	}
	return fs
}

// Serve accepts connections on ln until Shutdown is called.
func (fs *FixtureServer) Serve(ln net.Listener) error {
	return fs.server.Serve(ln)
}

func (fs *FixtureServer) ListenAndServe(addr string) error {
	return fs.server.ListenAndServe(addr)
}

func (fs *FixtureServer) Shutdown() error {
	return fs.server.Shutdown()
}

func (fs *FixtureServer) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	fs.logger.Log("%s %s", ctx.Method(), path)

	switch {
	case path == "/headers":
		fs.echo(ctx)
	case path == "/challenge":
		ctx.Response.Header.Set("Server", "cloudflare")
		ctx.SetContentType("text/html; charset=UTF-8")
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString(cloudflareChallengePage)
	case strings.HasPrefix(path, "/redirect/"):
		fs.redirect(ctx, strings.TrimPrefix(path, "/redirect/"))
	case strings.HasPrefix(path, "/status/"):
		code, err := strconv.Atoi(strings.TrimPrefix(path, "/status/"))
		if err != nil || code < 100 || code > 599 {
			ctx.Error("invalid status code", fasthttp.StatusBadRequest)
			return
		}
		ctx.SetStatusCode(code)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (fs *FixtureServer) echo(ctx *fasthttp.RequestCtx) {
	echoed := EchoedRequest{
		Method:  string(ctx.Method()),
		Path:    string(ctx.Path()),
		Headers: make(map[string]string),
		Body:    string(ctx.PostBody()),
	}
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		echoed.Headers[strings.ToLower(string(key))] = string(value)
	})

	body, err := json.Marshal(echoed)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (fs *FixtureServer) redirect(ctx *fasthttp.RequestCtx, hops string) {
	n, err := strconv.Atoi(hops)
	if err != nil || n < 1 {
		ctx.Error("invalid hop count", fasthttp.StatusBadRequest)
		return
	}
	location := "/headers"
	if n > 1 {
		location = "/redirect/" + strconv.Itoa(n-1)
	}
	ctx.Response.Header.Set("Location", location)
	ctx.SetStatusCode(fasthttp.StatusFound)
}
